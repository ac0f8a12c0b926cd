package sim

// Counter accumulates simulation outcomes.
type Counter struct {
	Grants      int
	GrantsByTyp map[string]int
	Probes      int
	Allowed     int
	Denied      int
}

// AddGrant records a filed paper.
func (c *Counter) AddGrant(g Grant) {
	c.Grants++
	if c.GrantsByTyp == nil {
		c.GrantsByTyp = make(map[string]int)
	}
	c.GrantsByTyp[g.PaperType]++
}

// AddProbe records one access decision.
func (c *Counter) AddProbe(allowed bool) {
	c.Probes++
	if allowed {
		c.Allowed++
	} else {
		c.Denied++
	}
}

// AllowRate reports the fraction of probes that were allowed.
func (c Counter) AllowRate() float64 {
	if c.Probes == 0 {
		return 0
	}
	return float64(c.Allowed) / float64(c.Probes)
}
