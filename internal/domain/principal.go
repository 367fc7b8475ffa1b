package domain

// Principal is the authenticated user acting on work orders.
type Principal struct {
	ID    string `json:"id" toml:"id"`
	Name  string `json:"name,omitempty" toml:"name"`
	Admin bool   `json:"admin,omitempty" toml:"admin"`
}

// CanModify reports whether p may update wo.
func (p Principal) CanModify(wo *WorkOrder) bool {
	return p.Admin || (p.ID != "" && p.ID == wo.OwnerID)
}
