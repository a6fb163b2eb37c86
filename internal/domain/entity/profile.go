package entity

// Profile represents the resolved ENS identity of a name.
// Each field is resolved independently; failures are recorded in Errors
// keyed by field name ("resolver", "address", "avatar" or "text:<key>").
type Profile struct {
	Name     string            `json:"name"`
	Resolver string            `json:"resolver,omitempty"`
	Address  string            `json:"address,omitempty"`
	Avatar   string            `json:"avatar,omitempty"`
	Texts    map[string]string `json:"texts"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// AddError records a failed field lookup
func (p *Profile) AddError(field string, err error) {
	if p.Errors == nil {
		p.Errors = make(map[string]string)
	}
	p.Errors[field] = err.Error()
}
