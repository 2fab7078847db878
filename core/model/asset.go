package model

// AssetKind identifies the variant of an installed asset.
type AssetKind int

const (
	KindGenerator AssetKind = iota
	KindStorage
	KindPassive
)

// String returns a human-readable representation of the asset kind.
func (k AssetKind) String() string {
	switch k {
	case KindGenerator:
		return "generator"
	case KindStorage:
		return "storage"
	case KindPassive:
		return "passive"
	default:
		return "unknown"
	}
}

// ParseAssetKind maps a catalogue resource class to an asset kind.
func ParseAssetKind(s string) (AssetKind, bool) {
	switch s {
	case "generator":
		return KindGenerator, true
	case "storage":
		return KindStorage, true
	case "passive":
		return KindPassive, true
	default:
		return 0, false
	}
}

// InstallationDetail is the reporting view of an installed asset.
type InstallationDetail struct {
	Name       string    `json:"name"`
	Technology string    `json:"technology"`
	Kind       AssetKind `json:"-"`
	KindName   string    `json:"kind"`
	Capacity   float64   `json:"capacity"`
	Rank       int       `json:"rank,omitempty"`
	DeployAt   float64   `json:"deploy_at,omitempty"`
}
