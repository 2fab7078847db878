package technology

import "fmt"

// StorageTechnology is a battery or pumped-hydro style template.
type StorageTechnology struct {
	Properties
	RoundTripEfficiency float64
}

// Props returns the shared cost properties.
func (s *StorageTechnology) Props() Properties { return s.Properties }

// TotalVariableCost is the variable O&M.
func (s *StorageTechnology) TotalVariableCost() float64 { return s.VariableOM }

// Validate checks the efficiency lies in (0, 1].
func (s *StorageTechnology) Validate() error {
	if err := s.Properties.Validate(); err != nil {
		return err
	}
	if s.RoundTripEfficiency <= 0 || s.RoundTripEfficiency > 1 {
		return fmt.Errorf("%s: round trip efficiency %v outside (0, 1]", s.Name, s.RoundTripEfficiency)
	}
	return nil
}

// PassiveTechnology is a non-dispatchable template such as wind or solar.
type PassiveTechnology struct {
	Properties
	RoundTripEfficiency float64
	// LevelizedCost overrides the computed levelized cost when set.
	LevelizedCost *float64
}

// Props returns the shared cost properties.
func (p *PassiveTechnology) Props() Properties { return p.Properties }

// TotalVariableCost is the variable O&M.
func (p *PassiveTechnology) TotalVariableCost() float64 { return p.VariableOM }

// Validate checks the shared properties.
func (p *PassiveTechnology) Validate() error { return p.Properties.Validate() }
