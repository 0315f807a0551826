package domain

type Workspace struct {
	ID               string   `json:"id"`
	AllowedHostnames []string `json:"allowed_hostnames"`
	VerifiedDomains  []string `json:"verified_domains"`
}

// Hostnames returns the combined allow-list evaluated by the hostname gate.
func (w *Workspace) Hostnames() []string {
	out := make([]string, 0, len(w.AllowedHostnames)+len(w.VerifiedDomains))
	out = append(out, w.AllowedHostnames...)
	out = append(out, w.VerifiedDomains...)
	return out
}
