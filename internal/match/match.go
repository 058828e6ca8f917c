// Package match models Riot match-v5 documents and their gzip-compressed
// archive layout. The model is deliberately partial: only the fields the
// recap aggregation reads are declared, everything else passes through the
// archive untouched as raw bytes.
package match

import (
	"encoding/json"
	"fmt"
)

type (
	// Match is a decoded match-v5 document.
	Match struct {
		Metadata Metadata `json:"metadata"`
		Info     Info     `json:"info"`
	}

	// Metadata carries the match identifier.
	Metadata struct {
		MatchID string `json:"matchId"`
	}

	// Info is the gameplay payload of a match.
	Info struct {
		GameCreation int64         `json:"gameCreation"` // epoch milliseconds
		GameDuration int64         `json:"gameDuration"` // seconds
		GameVersion  string        `json:"gameVersion"`
		QueueID      int           `json:"queueId"`
		Participants []Participant `json:"participants"`
		Teams        []Team        `json:"teams"`
	}

	// Participant is one player's line in a match.
	Participant struct {
		PUUID          string `json:"puuid"`
		TeamID         int    `json:"teamId"`
		Win            bool   `json:"win"`
		ChampionName   string `json:"championName"`
		TeamPosition   string `json:"teamPosition"`
		Lane           string `json:"lane"`
		Role           string `json:"role"`
		RiotIDGameName string `json:"riotIdGameName"`
		SummonerName   string `json:"summonerName"`

		Kills   int `json:"kills"`
		Deaths  int `json:"deaths"`
		Assists int `json:"assists"`

		TotalDamageDealtToChampions    int `json:"totalDamageDealtToChampions"`
		PhysicalDamageDealtToChampions int `json:"physicalDamageDealtToChampions"`
		MagicDamageDealtToChampions    int `json:"magicDamageDealtToChampions"`
		TrueDamageDealtToChampions     int `json:"trueDamageDealtToChampions"`
		TotalDamageTaken               int `json:"totalDamageTaken"`
		TotalHealsOnTeammates          int `json:"totalHealsOnTeammates"`
		TotalDamageShieldedOnTeammates int `json:"totalDamageShieldedOnTeammates"`
		DamageDealtToObjectives        int `json:"damageDealtToObjectives"`

		TotalMinionsKilled   int `json:"totalMinionsKilled"`
		NeutralMinionsKilled int `json:"neutralMinionsKilled"`
		GoldEarned           int `json:"goldEarned"`
		VisionScore          int `json:"visionScore"`
		VisionWardsBought    int `json:"visionWardsBoughtInGame"`
		WardsKilled          int `json:"wardsKilled"`
		TimePlayed           int `json:"timePlayed"` // seconds

		DoubleKills int `json:"doubleKills"`
		TripleKills int `json:"tripleKills"`
		QuadraKills int `json:"quadraKills"`
		PentaKills  int `json:"pentaKills"`

		TurretKills     int `json:"turretKills"`
		DragonKills     int `json:"dragonKills"`
		BaronKills      int `json:"baronKills"`
		RiftHeraldKills int `json:"riftHeraldKills"`

		FirstBloodKill   bool `json:"firstBloodKill"`
		FirstBloodAssist bool `json:"firstBloodAssist"`

		Item0 int `json:"item0"`
		Item1 int `json:"item1"`
		Item2 int `json:"item2"`
		Item3 int `json:"item3"`
		Item4 int `json:"item4"`
		Item5 int `json:"item5"`
		Item6 int `json:"item6"` // trinket slot

		Summoner1ID    int `json:"summoner1Id"`
		Summoner2ID    int `json:"summoner2Id"`
		Summoner1Casts int `json:"summoner1Casts"`
		Summoner2Casts int `json:"summoner2Casts"`

		Challenges Challenges `json:"challenges"`
	}

	// Challenges is the post-game challenge stat block. Values arrive as JSON
	// numbers; only integral ones are declared here.
	Challenges struct {
		DragonTakedowns     int `json:"dragonTakedowns"`
		BaronTakedowns      int `json:"baronTakedowns"`
		RiftHeraldTakedowns int `json:"riftHeraldTakedowns"`
		SoloKills           int `json:"soloKills"`
		// The void grub counter has gone by different names across patches.
		VoidGrubKills      int `json:"voidgrubKills"`
		VoidMonstersKilled int `json:"voidMonstersKilled"`
	}

	// Team is one side's summary line.
	Team struct {
		TeamID     int        `json:"teamId"`
		Win        bool       `json:"win"`
		Objectives Objectives `json:"objectives"`
	}

	// Objectives groups the per-objective first/kill counters.
	Objectives struct {
		Champion   Objective `json:"champion"`
		Tower      Objective `json:"tower"`
		Dragon     Objective `json:"dragon"`
		Baron      Objective `json:"baron"`
		RiftHerald Objective `json:"riftHerald"`
	}

	// Objective is a single objective counter.
	Objective struct {
		First bool `json:"first"`
		Kills int  `json:"kills"`
	}
)

// Decode parses a raw match-v5 document.
func Decode(raw []byte) (*Match, error) {
	var m Match
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode match document: %w", err)
	}

	return &m, nil
}

// Items returns the seven item slots in order, including empties (0) and the
// trinket slot.
func (p *Participant) Items() [7]int {
	return [7]int{p.Item0, p.Item1, p.Item2, p.Item3, p.Item4, p.Item5, p.Item6}
}

// CS returns lane plus jungle creep score.
func (p *Participant) CS() int {
	return p.TotalMinionsKilled + p.NeutralMinionsKilled
}

// VoidGrubs returns the void grub counter under whichever name this match's
// patch used.
func (c *Challenges) VoidGrubs() int {
	if c.VoidGrubKills != 0 {
		return c.VoidGrubKills
	}

	return c.VoidMonstersKilled
}

// ParticipantByPUUID finds a player's line in the match, or nil when the
// player did not take part.
func (m *Match) ParticipantByPUUID(puuid string) *Participant {
	for i := range m.Info.Participants {
		if m.Info.Participants[i].PUUID == puuid {
			return &m.Info.Participants[i]
		}
	}

	return nil
}

// TeamOf returns the team summary for a team ID, or nil when absent.
func (m *Match) TeamOf(teamID int) *Team {
	for i := range m.Info.Teams {
		if m.Info.Teams[i].TeamID == teamID {
			return &m.Info.Teams[i]
		}
	}

	return nil
}
