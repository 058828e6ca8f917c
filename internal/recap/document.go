// Package recap computes and stores season recap documents: per-player,
// per-year KPI aggregates derived from archived match documents.
//
// Aggregation is deterministic: every ranking applies a total order with
// explicit tie-breakers, so re-running over the same archive yields a
// byte-identical document.
package recap

type (
	// Document is the stored recap for one player and period.
	Document struct {
		PUUID string `json:"puuid"`
		Year  string `json:"year"`
		KPIs  KPIs   `json:"kpis"`
	}

	// KPIs is the aggregate stat block. Nullable fields use pointers and
	// stay null when no game qualifies, mirroring how consumers already
	// read the document.
	KPIs struct {
		Games   int     `json:"games"`
		Winrate float64 `json:"winrate"`

		KillParticipationMean float64 `json:"kill_participation_mean"`
		DamageShareMean       float64 `json:"damage_share_mean"`
		CSPerMinMean          float64 `json:"cs_per_min_mean"`
		VisionPerMinMean      float64 `json:"vision_pm_mean"`
		ObjectiveContribMean  float64 `json:"objective_contrib_mean"`

		GoldPerMinMean    float64 `json:"gold_per_min_mean"`
		DamagePerMinMean  float64 `json:"dmg_per_min_mean"`
		DamageTakenPMMean float64 `json:"dmg_taken_pm_mean"`

		TurretsKilledTotal    int     `json:"turrets_killed_total"`
		DragonsKilledTotal    int     `json:"dragons_killed_total"`
		BaronsKilledTotal     int     `json:"barons_killed_total"`
		HeraldsKilledTotal    int     `json:"heralds_killed_total"`
		GrubsKilledTotal      int     `json:"grubs_killed_total"`
		ObjectiveDamageTotal  int     `json:"objective_damage_total"`
		ObjectiveDamagePMMean float64 `json:"objective_damage_pm_mean"`

		FirstBloodRateSelf float64 `json:"first_blood_rate_self"`
		AvgGameTimeMin     float64 `json:"avg_game_time_min"`

		FavoriteDamageType *string `json:"favorite_damage_type"`

		TopChampions     []ChampionGames `json:"top_champions"`
		RoleDistribution []RoleGames     `json:"role_distribution"`

		FavoriteItems []ItemGames  `json:"favorite_items"`
		BestItems     []ItemRecord `json:"best_items"`
		WorstItems    []ItemRecord `json:"worst_items"`

		FavoriteSummonerSpell *int    `json:"favorite_summoner_spell"`
		FlashCastsTotal       int     `json:"flash_casts_total"`
		FlashCastsPerGame     float64 `json:"flash_casts_per_game"`

		DuoMostPlayed *DuoStat `json:"duo_most_played"`
		DuoBest       *DuoStat `json:"duo_best"`
		DuoWorst      *DuoStat `json:"duo_worst"`

		SplitRankedSoloDuo QueueSplit `json:"split_ranked_solo_duo"`
		SplitRankedFlex    QueueSplit `json:"split_ranked_flex"`
		SplitNormals       QueueSplit `json:"split_normals"`

		ChampionWinrates []ChampionRecord `json:"champion_winrates"`

		WhenFirstBloodSelf ConditionalWinrate `json:"when_fb_self"`
		WhenTeamFirstBlood ConditionalWinrate `json:"when_team_first_blood"`
		WhenFirstTower     ConditionalWinrate `json:"when_first_tower"`
		WhenFirstDragon    ConditionalWinrate `json:"when_first_dragon"`
		WhenFirstBaron     ConditionalWinrate `json:"when_first_baron"`
		WhenFirstHerald    ConditionalWinrate `json:"when_first_herald"`

		// Gold swing extremes need timeline documents, which the archive
		// does not hold yet. Emitted as null until a timeline pass exists.
		LargestGoldLead    *GoldSwing `json:"largest_gold_lead"`
		LargestGoldDeficit *GoldSwing `json:"largest_gold_deficit"`
	}

	// ChampionGames counts games on one champion.
	ChampionGames struct {
		Name  string `json:"name"`
		Games int    `json:"games"`
	}

	// RoleGames counts games in one role.
	RoleGames struct {
		Role  string `json:"role"`
		Games int    `json:"games"`
	}

	// ItemGames counts final builds containing one item.
	ItemGames struct {
		ItemID int `json:"itemId"`
		Games  int `json:"games"`
	}

	// ItemRecord is an item's win record across final builds.
	ItemRecord struct {
		ItemID  int     `json:"itemId"`
		Games   int     `json:"games"`
		Wins    int     `json:"wins"`
		Winrate float64 `json:"winrate"`
	}

	// DuoStat is the shared record with one teammate.
	DuoStat struct {
		MatePUUID string  `json:"mate_puuid"`
		Name      string  `json:"name"`
		Games     int     `json:"games"`
		Wins      int     `json:"wins"`
		Winrate   float64 `json:"winrate"`
	}

	// QueueSplit is the record within one queue bucket. Winrate is null
	// when no games fall in the bucket.
	QueueSplit struct {
		Games   int      `json:"games"`
		Winrate *float64 `json:"winrate"`
	}

	// ChampionRecord is a champion's win record with first-blood
	// conditionals; the conditionals are null when no qualifying game
	// exists.
	ChampionRecord struct {
		Name              string   `json:"name"`
		Games             int      `json:"games"`
		Wins              int      `json:"wins"`
		Winrate           float64  `json:"winrate"`
		WinrateWhenFBSelf *float64 `json:"winrate_when_fb_self"`
		WinrateWhenTeamFB *float64 `json:"winrate_when_team_fb"`
	}

	// ConditionalWinrate is the record over games satisfying a condition.
	ConditionalWinrate struct {
		Games   int      `json:"games"`
		Winrate *float64 `json:"winrate"`
	}

	// GoldSwing locates a game's largest gold lead or deficit.
	GoldSwing struct {
		MatchID string `json:"match_id"`
		DateISO string `json:"date_iso"`
		Gold    int    `json:"gold"`
	}
)
