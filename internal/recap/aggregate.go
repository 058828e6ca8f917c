package recap

import (
	"sort"
)

const (
	topChampionCount    = 5
	favoriteItemCount   = 10
	rankedItemCount     = 5
	championRecordCount = 20

	// Item and duo win records below these sample sizes are noise.
	minItemGames = 10
	minDuoGames  = 5
)

// Aggregate folds feature rows into the KPI block. Rows order does not
// matter: every ranking is re-sorted under a total order (count, then ID),
// so the same rows always produce the same block.
func Aggregate(rows []FeatureRow) KPIs {
	kpis := KPIs{
		TopChampions:     []ChampionGames{},
		RoleDistribution: []RoleGames{},
		FavoriteItems:    []ItemGames{},
		BestItems:        []ItemRecord{},
		WorstItems:       []ItemRecord{},
		ChampionWinrates: []ChampionRecord{},
	}

	n := len(rows)
	if n == 0 {
		return kpis
	}

	wins := 0
	for i := range rows {
		if rows[i].Win {
			wins++
		}
	}

	mean := func(pick func(*FeatureRow) float64) float64 {
		var sum float64
		for i := range rows {
			sum += pick(&rows[i])
		}

		return sum / float64(n)
	}

	kpis.Games = n
	kpis.Winrate = float64(wins) / float64(n)

	kpis.KillParticipationMean = mean(func(r *FeatureRow) float64 { return r.KillParticipation })
	kpis.DamageShareMean = mean(func(r *FeatureRow) float64 { return r.DamageShare })
	kpis.CSPerMinMean = mean(func(r *FeatureRow) float64 { return r.CSPerMin })
	kpis.VisionPerMinMean = mean(func(r *FeatureRow) float64 { return r.VisionPerMin })
	kpis.ObjectiveContribMean = mean(func(r *FeatureRow) float64 { return r.ObjectiveContrib })

	kpis.GoldPerMinMean = mean(func(r *FeatureRow) float64 { return r.GoldPerMin })
	kpis.DamagePerMinMean = mean(func(r *FeatureRow) float64 { return r.DamagePerMin })
	kpis.DamageTakenPMMean = mean(func(r *FeatureRow) float64 { return r.DamageTakenPerMin })

	for i := range rows {
		r := &rows[i]
		kpis.TurretsKilledTotal += r.TurretKills
		kpis.DragonsKilledTotal += r.DragonsKilled
		kpis.BaronsKilledTotal += r.BaronsKilled
		kpis.HeraldsKilledTotal += r.HeraldsKilled
		kpis.GrubsKilledTotal += r.GrubsKilled
		kpis.ObjectiveDamageTotal += r.ObjectiveDamage
		kpis.FlashCastsTotal += r.FlashCasts
	}

	meanGameMinutes := mean(func(r *FeatureRow) float64 { return float64(r.TimePlayedSec) }) / 60.0
	kpis.ObjectiveDamagePMMean = mean(func(r *FeatureRow) float64 { return float64(r.ObjectiveDamage) }) / max(meanGameMinutes, 1e-9)

	kpis.FirstBloodRateSelf = mean(func(r *FeatureRow) float64 { return boolToFloat(r.FirstBloodInvolved) })
	kpis.AvgGameTimeMin = meanGameMinutes
	kpis.FlashCastsPerGame = float64(kpis.FlashCastsTotal) / float64(n)

	kpis.FavoriteDamageType = favoriteDamageType(rows)

	kpis.TopChampions = topChampions(rows)
	kpis.RoleDistribution = roleDistribution(rows)
	kpis.FavoriteItems, kpis.BestItems, kpis.WorstItems = itemStats(rows)
	kpis.FavoriteSummonerSpell = favoriteSpell(rows)
	kpis.DuoMostPlayed, kpis.DuoBest, kpis.DuoWorst = duoStats(rows)

	kpis.SplitRankedSoloDuo = queueSplit(rows, func(q int) bool { return q == QueueRankedSoloDuo })
	kpis.SplitRankedFlex = queueSplit(rows, func(q int) bool { return q == QueueRankedFlex })
	kpis.SplitNormals = queueSplit(rows, func(q int) bool { return queueNormals[q] })

	kpis.ChampionWinrates = championWinrates(rows)

	kpis.WhenFirstBloodSelf = conditionalWinrate(rows, func(r *FeatureRow) bool { return r.FirstBloodInvolved })
	kpis.WhenTeamFirstBlood = conditionalWinrate(rows, func(r *FeatureRow) bool { return r.TeamFirstBlood })
	kpis.WhenFirstTower = conditionalWinrate(rows, func(r *FeatureRow) bool { return r.TeamFirstTower })
	kpis.WhenFirstDragon = conditionalWinrate(rows, func(r *FeatureRow) bool { return r.TeamFirstDragon })
	kpis.WhenFirstBaron = conditionalWinrate(rows, func(r *FeatureRow) bool { return r.TeamFirstBaron })
	kpis.WhenFirstHerald = conditionalWinrate(rows, func(r *FeatureRow) bool { return r.TeamFirstHerald })

	return kpis
}

// favoriteDamageType picks the damage class the player dealt the most of.
// Ties break physical over magic over true; all-zero totals yield null.
func favoriteDamageType(rows []FeatureRow) *string {
	var phys, magic, truth int
	for i := range rows {
		phys += rows[i].PhysToChamps
		magic += rows[i].MagicToChamps
		truth += rows[i].TrueToChamps
	}

	if phys+magic+truth == 0 {
		return nil
	}

	name := "PHYSICAL"
	best := phys

	if magic > best {
		name, best = "MAGIC", magic
	}

	if truth > best {
		name = "TRUE"
	}

	return &name
}

func topChampions(rows []FeatureRow) []ChampionGames {
	counts := map[string]int{}
	for i := range rows {
		if rows[i].Champion != "" {
			counts[rows[i].Champion]++
		}
	}

	out := make([]ChampionGames, 0, len(counts))
	for name, games := range counts {
		out = append(out, ChampionGames{Name: name, Games: games})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Games != out[j].Games {
			return out[i].Games > out[j].Games
		}

		return out[i].Name < out[j].Name
	})

	if len(out) > topChampionCount {
		out = out[:topChampionCount]
	}

	return out
}

func roleDistribution(rows []FeatureRow) []RoleGames {
	counts := map[string]int{}
	for i := range rows {
		role := rows[i].Role
		if role == "" {
			role = "UNKNOWN"
		}

		counts[role]++
	}

	out := make([]RoleGames, 0, len(counts))
	for role, games := range counts {
		out = append(out, RoleGames{Role: role, Games: games})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Games != out[j].Games {
			return out[i].Games > out[j].Games
		}

		return out[i].Role < out[j].Role
	})

	return out
}

// itemStats ranks final-build items three ways: by popularity, and by
// winrate from both ends among items with enough games. The worst list is
// the tail of the same descending ranking, so with few distinct items the
// two can overlap.
func itemStats(rows []FeatureRow) (favorites []ItemGames, best, worst []ItemRecord) {
	type record struct{ games, wins int }

	byItem := map[int]*record{}

	for i := range rows {
		for _, item := range rows[i].ItemsFinal {
			rec := byItem[item]
			if rec == nil {
				rec = &record{}
				byItem[item] = rec
			}

			rec.games++
			if rows[i].Win {
				rec.wins++
			}
		}
	}

	favorites = make([]ItemGames, 0, len(byItem))
	for item, rec := range byItem {
		favorites = append(favorites, ItemGames{ItemID: item, Games: rec.games})
	}

	sort.Slice(favorites, func(i, j int) bool {
		if favorites[i].Games != favorites[j].Games {
			return favorites[i].Games > favorites[j].Games
		}

		return favorites[i].ItemID < favorites[j].ItemID
	})

	if len(favorites) > favoriteItemCount {
		favorites = favorites[:favoriteItemCount]
	}

	ranked := make([]ItemRecord, 0, len(byItem))

	for item, rec := range byItem {
		if rec.games < minItemGames {
			continue
		}

		ranked = append(ranked, ItemRecord{
			ItemID:  item,
			Games:   rec.games,
			Wins:    rec.wins,
			Winrate: float64(rec.wins) / float64(rec.games),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Winrate != ranked[j].Winrate {
			return ranked[i].Winrate > ranked[j].Winrate
		}

		if ranked[i].Games != ranked[j].Games {
			return ranked[i].Games > ranked[j].Games
		}

		return ranked[i].ItemID < ranked[j].ItemID
	})

	best = ranked[:min(rankedItemCount, len(ranked))]

	worst = []ItemRecord{}
	if len(ranked) > 0 {
		worst = ranked[max(0, len(ranked)-rankedItemCount):]
	}

	return favorites, best, worst
}

func favoriteSpell(rows []FeatureRow) *int {
	counts := map[int]int{}

	for i := range rows {
		if rows[i].Spell1 != 0 {
			counts[rows[i].Spell1]++
		}

		if rows[i].Spell2 != 0 {
			counts[rows[i].Spell2]++
		}
	}

	if len(counts) == 0 {
		return nil
	}

	var (
		bestSpell int
		bestCount int
	)

	for spell, count := range counts {
		if count > bestCount || (count == bestCount && spell < bestSpell) {
			bestSpell, bestCount = spell, count
		}
	}

	return &bestSpell
}

func duoStats(rows []FeatureRow) (mostPlayed, best, worst *DuoStat) {
	type record struct {
		games, wins int
		name        string
	}

	byMate := map[string]*record{}

	for i := range rows {
		r := &rows[i]
		for _, mate := range r.Teammates {
			rec := byMate[mate]
			if rec == nil {
				rec = &record{}
				byMate[mate] = rec
			}

			rec.games++
			if r.Win {
				rec.wins++
			}

			if name := r.TeammateNames[mate]; name != "" {
				rec.name = name
			}
		}
	}

	if len(byMate) == 0 {
		return nil, nil, nil
	}

	stats := make([]DuoStat, 0, len(byMate))

	for mate, rec := range byMate {
		name := rec.name
		if name == "" {
			name = "Unknown"
		}

		stats = append(stats, DuoStat{
			MatePUUID: mate,
			Name:      name,
			Games:     rec.games,
			Wins:      rec.wins,
			Winrate:   float64(rec.wins) / float64(rec.games),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Games != stats[j].Games {
			return stats[i].Games > stats[j].Games
		}

		return stats[i].MatePUUID < stats[j].MatePUUID
	})

	mostPlayed = &stats[0]

	for i := range stats {
		s := &stats[i]
		if s.Games < minDuoGames {
			continue
		}

		if best == nil || s.Winrate > best.Winrate {
			best = s
		}

		if worst == nil || s.Winrate < worst.Winrate {
			worst = s
		}
	}

	return mostPlayed, best, worst
}

func queueSplit(rows []FeatureRow, inBucket func(int) bool) QueueSplit {
	games, wins := 0, 0

	for i := range rows {
		if !inBucket(rows[i].QueueID) {
			continue
		}

		games++
		if rows[i].Win {
			wins++
		}
	}

	split := QueueSplit{Games: games}
	if games > 0 {
		winrate := float64(wins) / float64(games)
		split.Winrate = &winrate
	}

	return split
}

func championWinrates(rows []FeatureRow) []ChampionRecord {
	type record struct {
		games, wins           int
		gamesFBSelf, winsSelf int
		gamesTeamFB, winsTeam int
	}

	byChamp := map[string]*record{}

	for i := range rows {
		r := &rows[i]

		name := r.Champion
		if name == "" {
			name = "Unknown"
		}

		rec := byChamp[name]
		if rec == nil {
			rec = &record{}
			byChamp[name] = rec
		}

		rec.games++

		win := 0
		if r.Win {
			win = 1
		}

		rec.wins += win

		if r.FirstBloodInvolved {
			rec.gamesFBSelf++
			rec.winsSelf += win
		}

		if r.TeamFirstBlood {
			rec.gamesTeamFB++
			rec.winsTeam += win
		}
	}

	out := make([]ChampionRecord, 0, len(byChamp))

	for name, rec := range byChamp {
		cr := ChampionRecord{
			Name:    name,
			Games:   rec.games,
			Wins:    rec.wins,
			Winrate: float64(rec.wins) / float64(rec.games),
		}

		if rec.gamesFBSelf > 0 {
			wr := float64(rec.winsSelf) / float64(rec.gamesFBSelf)
			cr.WinrateWhenFBSelf = &wr
		}

		if rec.gamesTeamFB > 0 {
			wr := float64(rec.winsTeam) / float64(rec.gamesTeamFB)
			cr.WinrateWhenTeamFB = &wr
		}

		out = append(out, cr)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Games != out[j].Games {
			return out[i].Games > out[j].Games
		}

		return out[i].Name < out[j].Name
	})

	if len(out) > championRecordCount {
		out = out[:championRecordCount]
	}

	return out
}

func conditionalWinrate(rows []FeatureRow, pred func(*FeatureRow) bool) ConditionalWinrate {
	games, wins := 0, 0

	for i := range rows {
		if !pred(&rows[i]) {
			continue
		}

		games++
		if rows[i].Win {
			wins++
		}
	}

	cw := ConditionalWinrate{Games: games}
	if games > 0 {
		winrate := float64(wins) / float64(games)
		cw.Winrate = &winrate
	}

	return cw
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
