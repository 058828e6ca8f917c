package recap

import (
	"github.com/rewind-gg/rewind/internal/match"
)

// Queue IDs that define the split buckets.
const (
	QueueRankedSoloDuo = 420
	QueueRankedFlex    = 440
	QueueARAM          = 450
)

// queueNormals are the unranked Summoner's Rift queues: blind, draft, and
// swiftplay/normal draft.
var queueNormals = map[int]bool{400: true, 430: true, 490: true}

// roleByPosition normalizes the teamPosition field. UTILITY is the API's name
// for support.
var roleByPosition = map[string]string{
	"TOP":     "TOP",
	"JUNGLE":  "JUNGLE",
	"MIDDLE":  "MIDDLE",
	"BOTTOM":  "BOTTOM",
	"UTILITY": "SUPPORT",
}

// Trinkets and consumables are excluded from item stats: everyone buys them,
// so they carry no signal. Boots stay in.
var ignoredItems = map[int]bool{
	// trinkets
	3340: true, 3363: true, 3364: true,
	// consumables
	2003: true, 2010: true, 2031: true, 2033: true, 2138: true, 2139: true, 2140: true,
}

// flashSpellID is the summoner spell ID for Flash.
const flashSpellID = 4

// FeatureRow is one match reduced to the player-centric features the
// aggregation consumes.
type FeatureRow struct {
	MatchID        string
	QueueID        int
	TimePlayedSec  int
	Win            bool
	GameCreationMS int64
	GameVersion    string
	Champion       string
	Role           string

	KillParticipation float64
	DamageShare       float64
	CSPerMin          float64
	VisionPerMin      float64
	ObjectiveContrib  float64

	Kills   int
	Deaths  int
	Assists int
	KDA     float64

	GoldPerMin        float64
	DamagePerMin      float64
	DamageTakenPerMin float64
	HealShieldPerMin  float64

	VisionWards int
	WardsKilled int
	SoloKills   int
	DoubleKills int
	TripleKills int
	QuadraKills int
	PentaKills  int

	PhysToChamps  int
	MagicToChamps int
	TrueToChamps  int

	TurretKills     int
	DragonsKilled   int
	BaronsKilled    int
	HeraldsKilled   int
	GrubsKilled     int
	ObjectiveDamage int

	FirstBloodInvolved bool
	TeamFirstBlood     bool
	TeamFirstTower     bool
	TeamFirstDragon    bool
	TeamFirstBaron     bool
	TeamFirstHerald    bool

	ItemsFinal []int
	Spell1     int
	Spell2     int
	FlashCasts int

	Teammates     []string
	TeammateNames map[string]string
}

// BuildFeatureRow reduces a match to the player's feature row. Returns nil
// when the player did not take part in the match.
func BuildFeatureRow(m *match.Match, puuid string) *FeatureRow {
	me := m.ParticipantByPUUID(puuid)
	if me == nil {
		return nil
	}

	info := &m.Info

	durationSec := info.GameDuration
	if durationSec == 0 {
		durationSec = int64(me.TimePlayed)
	}

	mins := float64(durationSec) / 60.0
	if mins == 0 {
		mins = 0.0001
	}

	var (
		team      []*match.Participant
		teamKills int
		teamDmg   int
	)

	for i := range info.Participants {
		p := &info.Participants[i]
		if p.TeamID != me.TeamID {
			continue
		}

		team = append(team, p)
		teamKills += p.Kills
		teamDmg += p.TotalDamageDealtToChampions
	}

	// Takedown counters in the challenge block count team objectives the
	// player took part in, so the team-wide total is the max across the
	// team, not the sum.
	var teamDragons, teamBarons, teamHeralds int

	myObjectives := me.Challenges.DragonTakedowns + me.Challenges.BaronTakedowns + me.Challenges.RiftHeraldTakedowns

	for _, p := range team {
		teamDragons = max(teamDragons, p.Challenges.DragonTakedowns)
		teamBarons = max(teamBarons, p.Challenges.BaronTakedowns)
		teamHeralds = max(teamHeralds, p.Challenges.RiftHeraldTakedowns)
	}

	teamObjectives := teamDragons + teamBarons + teamHeralds

	teamSummary := m.TeamOf(me.TeamID)

	var firstBlood, firstTower, firstDragon, firstBaron, firstHerald bool
	if teamSummary != nil {
		obj := &teamSummary.Objectives
		firstBlood = obj.Champion.First
		firstTower = obj.Tower.First
		firstDragon = obj.Dragon.First
		firstBaron = obj.Baron.First
		firstHerald = obj.RiftHerald.First
	}

	teammates := make([]string, 0, len(team))
	teammateNames := make(map[string]string, len(team))

	for _, p := range team {
		if p.PUUID == "" {
			continue
		}

		name := p.RiotIDGameName
		if name == "" {
			name = p.SummonerName
		}

		if name == "" {
			name = "Unknown"
		}

		teammateNames[p.PUUID] = name

		if p.PUUID != puuid {
			teammates = append(teammates, p.PUUID)
		}
	}

	itemsFinal := make([]int, 0, 7)
	for _, item := range me.Items() {
		if item != 0 && !ignoredItems[item] {
			itemsFinal = append(itemsFinal, item)
		}
	}

	flashCasts := 0
	if me.Summoner1ID == flashSpellID {
		flashCasts += me.Summoner1Casts
	}

	if me.Summoner2ID == flashSpellID {
		flashCasts += me.Summoner2Casts
	}

	timePlayed := me.TimePlayed
	if timePlayed == 0 {
		timePlayed = int(info.GameDuration)
	}

	return &FeatureRow{
		MatchID:        m.Metadata.MatchID,
		QueueID:        info.QueueID,
		TimePlayedSec:  timePlayed,
		Win:            me.Win,
		GameCreationMS: info.GameCreation,
		GameVersion:    info.GameVersion,
		Champion:       me.ChampionName,
		Role:           inferRole(me, info),

		KillParticipation: safeDiv(float64(me.Kills+me.Assists), float64(teamKills)),
		DamageShare:       safeDiv(float64(me.TotalDamageDealtToChampions), float64(teamDmg)),
		CSPerMin:          float64(me.CS()) / mins,
		VisionPerMin:      float64(me.VisionScore) / mins,
		ObjectiveContrib:  safeDiv(float64(myObjectives), float64(teamObjectives)),

		Kills:   me.Kills,
		Deaths:  me.Deaths,
		Assists: me.Assists,
		KDA:     kda(me.Kills, me.Deaths, me.Assists),

		GoldPerMin:        float64(me.GoldEarned) / mins,
		DamagePerMin:      float64(me.TotalDamageDealtToChampions) / mins,
		DamageTakenPerMin: float64(me.TotalDamageTaken) / mins,
		HealShieldPerMin:  float64(me.TotalHealsOnTeammates+me.TotalDamageShieldedOnTeammates) / mins,

		VisionWards: me.VisionWardsBought,
		WardsKilled: me.WardsKilled,
		SoloKills:   me.Challenges.SoloKills,
		DoubleKills: me.DoubleKills,
		TripleKills: me.TripleKills,
		QuadraKills: me.QuadraKills,
		PentaKills:  me.PentaKills,

		PhysToChamps:  me.PhysicalDamageDealtToChampions,
		MagicToChamps: me.MagicDamageDealtToChampions,
		TrueToChamps:  me.TrueDamageDealtToChampions,

		TurretKills:     me.TurretKills,
		DragonsKilled:   me.DragonKills,
		BaronsKilled:    me.BaronKills,
		HeraldsKilled:   me.RiftHeraldKills,
		GrubsKilled:     me.Challenges.VoidGrubs(),
		ObjectiveDamage: me.DamageDealtToObjectives,

		FirstBloodInvolved: me.FirstBloodKill || me.FirstBloodAssist,
		TeamFirstBlood:     firstBlood,
		TeamFirstTower:     firstTower,
		TeamFirstDragon:    firstDragon,
		TeamFirstBaron:     firstBaron,
		TeamFirstHerald:    firstHerald,

		ItemsFinal: itemsFinal,
		Spell1:     me.Summoner1ID,
		Spell2:     me.Summoner2ID,
		FlashCasts: flashCasts,

		Teammates:     teammates,
		TeammateNames: teammateNames,
	}
}

// inferRole normalizes the player's role. ARAM games are labeled as their
// own bucket; otherwise teamPosition decides, with the legacy lane/role
// fields as a fallback for old matches that predate teamPosition.
func inferRole(me *match.Participant, info *match.Info) string {
	if info.QueueID == QueueARAM {
		return "ARAM"
	}

	if role, ok := roleByPosition[me.TeamPosition]; ok {
		return role
	}

	if me.TeamPosition != "" {
		return "UNKNOWN"
	}

	lane := me.Lane
	role := me.Role

	switch lane {
	case "MID":
		lane = "MIDDLE"
	case "BOT", "ADC":
		lane = "BOTTOM"
	}

	switch lane {
	case "TOP", "JUNGLE", "MIDDLE":
		return lane
	case "BOTTOM":
		if role == "DUO_SUPPORT" || role == "SUPPORT" {
			return "SUPPORT"
		}

		return "BOTTOM"
	}

	switch role {
	case "DUO_SUPPORT", "SUPPORT":
		return "SUPPORT"
	case "DUO_CARRY", "CARRY":
		return "BOTTOM"
	}

	return "UNKNOWN"
}

// kda is (kills+assists)/deaths with deathless games scored against a
// divisor of one, so a flawless game ranks highest instead of zeroing out.
func kda(kills, deaths, assists int) float64 {
	if deaths == 0 {
		deaths = 1
	}

	return float64(kills+assists) / float64(deaths)
}

// safeDiv guards ratio features against empty denominators (remakes,
// zero-kill games).
func safeDiv(n, d float64) float64 {
	if d == 0 {
		return 0
	}

	return n / d
}
