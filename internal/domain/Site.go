package domain

// Site representa um site cadastrado na conta do Plausible.
// A identidade do site é o próprio domínio, único dentro da conta.
type Site struct {
	Domain   string `json:"domain"`
	Timezone string `json:"timezone"`
}
