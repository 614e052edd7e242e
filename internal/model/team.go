package model

const (
	// TeamMin and TeamMax bound the selectable team numbers.
	TeamMin = 1
	TeamMax = 10

	// TeamCapacity is the maximum number of members per team.
	TeamCapacity = 2
)

// Membership binds one user to one team. At most one row per user.
type Membership struct {
	OwnerID string `json:"user_id"`
	Team    int    `json:"team"`
}

// TeamCount reports how many members a team currently has.
type TeamCount struct {
	Team  int `json:"team"`
	Count int `json:"count"`
}

func ValidTeam(team int) bool {
	return team >= TeamMin && team <= TeamMax
}
