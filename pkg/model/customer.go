package model

// Customer is an exchange member. Resold members point at their reseller.
type Customer struct {
	Base
	Name       string    `json:"name"`
	ShortName  string    `json:"shortname"`
	IsReseller bool      `json:"is_reseller"`
	Reseller   *Customer `json:"-"`
}

// ResellerOrSelf returns the customer that scopes allocation for c:
// the reseller when c is resold, otherwise c itself.
func (c *Customer) ResellerOrSelf() *Customer {
	if c == nil {
		return nil
	}
	if c.Reseller != nil {
		return c.Reseller
	}
	return c
}

// IsResoldBy returns true if c is r or is resold by r
func (c *Customer) IsResoldBy(r *Customer) bool {
	if c == nil || r == nil {
		return false
	}
	return c == r || c.Reseller == r
}
