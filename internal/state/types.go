package state

import (
	"time"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
)

// #region influence-version
// InfluenceVersion is a versioned snapshot of the adaptive influence map.
type InfluenceVersion struct {
	VersionID string              `json:"version_id"`
	ParentID  string              `json:"parent_id,omitempty"`
	Influence factor.InfluenceMap `json:"influence"`
	RecordID  int64               `json:"record_id"` // history record whose outcome produced this version, 0 for initial
	Decision  string              `json:"decision"`  // "commit" | "initial" | "replay"
	Reason    string              `json:"reason,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// #endregion influence-version
