package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/vfg2006/plausible-stats-aggregator/pkg/apiErrors"
)

// Policy define a política de novas tentativas para chamadas à API.
// A decisão é uma função pura de (tentativa, erro), o que permite
// testá-la sem passagem de tempo real.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Jitter é a fração aleatória somada ao atraso (0.2 = até +20%)
	Jitter float64
}

// DefaultPolicy retorna a política usada contra a API do Plausible
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    60 * time.Second,
		Jitter:      0.2,
	}
}

// Next decide o que fazer após a tentativa de número attempt (base zero)
// falhar com err: retorna o tempo de espera antes da próxima tentativa e
// se deve tentar novamente. Erros não recuperáveis e tentativas esgotadas
// retornam retry=false.
func (p Policy) Next(attempt int, err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}

	if !apiErrors.IsRetryable(err) {
		return 0, false
	}

	if attempt >= p.MaxAttempts-1 {
		return 0, false
	}

	// Em um 429 o servidor pode mandar a espera exata no Retry-After
	if hint := apiErrors.RetryAfterHint(err); hint > 0 {
		if p.MaxDelay > 0 && hint > p.MaxDelay {
			hint = p.MaxDelay
		}
		return hint, true
	}

	delay := p.BaseDelay << uint(attempt)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.Jitter > 0 {
		delay += time.Duration(p.Jitter * rand.Float64() * float64(delay))
	}

	return delay, true
}

// Do executa fn aplicando a política de retry. A espera entre tentativas
// respeita o cancelamento do contexto. Quando as tentativas se esgotam o
// último erro é envolvido com o código de tentativas esgotadas.
func Do(ctx context.Context, policy Policy, fn func() error) error {
	var err error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		delay, retryable := policy.Next(attempt, err)
		if !retryable {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return apiErrors.Wrap(ctx.Err(), apiErrors.ErrNetworkFailure, "contexto cancelado durante a espera de retry")
		case <-timer.C:
		}
	}

	if apiErrors.IsRetryable(err) {
		return apiErrors.Wrap(err, apiErrors.ErrRetriesExhausted, "tentativas esgotadas")
	}

	return err
}
