package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Governor garante um espaçamento mínimo entre chamadas consecutivas à API
// do Plausible, derivado da cota de requisições por hora do fornecedor.
// É compartilhado por todas as chamadas de uma execução: o limite é global,
// não por site.
type Governor struct {
	mu       sync.Mutex
	interval time.Duration
	lastCall time.Time

	// injetáveis para testes
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGovernor cria um governador a partir da cota de requisições por hora
func NewGovernor(maxRequestsPerHour int) *Governor {
	if maxRequestsPerHour <= 0 {
		maxRequestsPerHour = 600
	}
	return NewGovernorWithInterval(time.Hour / time.Duration(maxRequestsPerHour))
}

// NewGovernorWithInterval cria um governador com espaçamento explícito
func NewGovernorWithInterval(interval time.Duration) *Governor {
	return &Governor{
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Interval retorna o espaçamento mínimo entre chamadas
func (g *Governor) Interval() time.Duration {
	return g.interval
}

// Wait bloqueia até abrir a janela para a próxima chamada, respeitando o
// cancelamento do contexto. Retorna quanto tempo esperou.
func (g *Governor) Wait(ctx context.Context) (time.Duration, error) {
	g.mu.Lock()

	var wait time.Duration
	if !g.lastCall.IsZero() {
		elapsed := g.now().Sub(g.lastCall)
		if elapsed < g.interval {
			wait = g.interval - elapsed
		}
	}

	if wait > 0 {
		// A espera acontece dentro da seção crítica: uma única chamada em voo por vez
		logrus.WithField("wait", wait.String()).Debug("ratelimit: aguardando janela da próxima requisição")
		if err := g.sleep(ctx, wait); err != nil {
			g.mu.Unlock()
			return 0, err
		}
	}

	g.lastCall = g.now()
	g.mu.Unlock()

	return wait, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
