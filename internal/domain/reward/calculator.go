// Package reward computes the points a submission earns. Compute is pure so that
// a stored award can be re-derived from the stored body and permissions.
package reward

import (
	"strings"
	"unicode/utf8"
)

const (
	BasePoints             int64 = 20
	DetailedStoryBonus     int64 = 5
	ReusePermissionBonus   int64 = 5
	DetailedStoryMinLength       = 100
)

// Bonus keys as they appear in a Breakdown.
const (
	BonusDetailedStory   = "detailed_story_bonus"
	BonusReusePermission = "reuse_permission_bonus"
)

// Permissions are the reuse rights an author grants on a submission.
type Permissions struct {
	AllowResale        bool `json:"allow_resale"`
	AllowDerivativeUse bool `json:"allow_derivative_use"`
}

func (p Permissions) GrantsReuse() bool {
	return p.AllowResale || p.AllowDerivativeUse
}

// Breakdown itemizes an award. Bonuses always carries every bonus key, zero when not earned.
type Breakdown struct {
	Base    int64            `json:"base"`
	Bonuses map[string]int64 `json:"bonuses"`
	Total   int64            `json:"total"`
}

// Compute returns the award for a body and permission set.
// The reuse bonus is flat: it applies once when either permission is granted.
func Compute(body string, perms Permissions) Breakdown {
	bonuses := map[string]int64{
		BonusDetailedStory:   0,
		BonusReusePermission: 0,
	}
	if utf8.RuneCountInString(strings.TrimSpace(body)) >= DetailedStoryMinLength {
		bonuses[BonusDetailedStory] = DetailedStoryBonus
	}
	if perms.GrantsReuse() {
		bonuses[BonusReusePermission] = ReusePermissionBonus
	}

	total := BasePoints
	for _, v := range bonuses {
		total += v
	}

	return Breakdown{Base: BasePoints, Bonuses: bonuses, Total: total}
}
