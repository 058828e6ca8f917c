package recap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

func simpleRow(champ string, queue int, win bool) FeatureRow {
	return FeatureRow{
		Champion:      champ,
		QueueID:       queue,
		Win:           win,
		Role:          "MIDDLE",
		TimePlayedSec: 1800,
	}
}

func TestAggregateEmpty(t *testing.T) {
	kpis := Aggregate(nil)

	if kpis.Games != 0 || kpis.Winrate != 0 {
		t.Errorf("empty aggregate has games=%d winrate=%v", kpis.Games, kpis.Winrate)
	}

	if kpis.FavoriteDamageType != nil || kpis.FavoriteSummonerSpell != nil {
		t.Error("empty aggregate should have null favorites")
	}

	if kpis.WhenFirstBloodSelf.Winrate != nil || kpis.SplitRankedSoloDuo.Winrate != nil {
		t.Error("empty buckets should have null winrates")
	}

	// Rankings serialize as [] rather than null so consumers can iterate
	// without nil checks.
	raw, err := json.Marshal(kpis)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	for _, key := range []string{"top_champions", "role_distribution", "favorite_items", "best_items", "worst_items", "champion_winrates"} {
		if !bytes.Contains(raw, []byte(`"`+key+`":[]`)) {
			t.Errorf("key %q did not serialize as an empty array:\n%s", key, raw)
		}
	}
}

func TestAggregateCounts(t *testing.T) {
	rows := []FeatureRow{
		simpleRow("Ahri", QueueRankedSoloDuo, true),
		simpleRow("Ahri", QueueRankedSoloDuo, true),
		simpleRow("Lux", QueueRankedSoloDuo, true),
		simpleRow("Zed", QueueRankedSoloDuo, false),
	}

	rows[0].KillParticipation = 0.4
	rows[1].KillParticipation = 0.6
	rows[2].KillParticipation = 0.5
	rows[3].KillParticipation = 0.5

	rows[0].FlashCasts = 2
	rows[1].FlashCasts = 6

	rows[0].DragonsKilled = 2
	rows[2].DragonsKilled = 1

	kpis := Aggregate(rows)

	if kpis.Games != 4 {
		t.Errorf("Games = %d, want 4", kpis.Games)
	}

	if !almostEqual(kpis.Winrate, 0.75) {
		t.Errorf("Winrate = %v, want 0.75", kpis.Winrate)
	}

	if !almostEqual(kpis.KillParticipationMean, 0.5) {
		t.Errorf("KillParticipationMean = %v, want 0.5", kpis.KillParticipationMean)
	}

	if !almostEqual(kpis.AvgGameTimeMin, 30.0) {
		t.Errorf("AvgGameTimeMin = %v, want 30", kpis.AvgGameTimeMin)
	}

	if kpis.FlashCastsTotal != 8 || !almostEqual(kpis.FlashCastsPerGame, 2.0) {
		t.Errorf("flash casts = %d total, %v per game", kpis.FlashCastsTotal, kpis.FlashCastsPerGame)
	}

	if kpis.DragonsKilledTotal != 3 {
		t.Errorf("DragonsKilledTotal = %d, want 3", kpis.DragonsKilledTotal)
	}
}

func TestAggregateQueueSplits(t *testing.T) {
	rows := []FeatureRow{
		simpleRow("Ahri", QueueRankedSoloDuo, true),
		simpleRow("Ahri", QueueRankedSoloDuo, false),
		simpleRow("Ahri", 400, true),
		simpleRow("Ahri", 430, true),
		simpleRow("Ahri", 490, false),
		simpleRow("Ahri", QueueARAM, true),
	}

	kpis := Aggregate(rows)

	if kpis.SplitRankedSoloDuo.Games != 2 || kpis.SplitRankedSoloDuo.Winrate == nil || !almostEqual(*kpis.SplitRankedSoloDuo.Winrate, 0.5) {
		t.Errorf("solo split = %+v", kpis.SplitRankedSoloDuo)
	}

	if kpis.SplitRankedFlex.Games != 0 || kpis.SplitRankedFlex.Winrate != nil {
		t.Errorf("flex split should be empty with null winrate, got %+v", kpis.SplitRankedFlex)
	}

	// ARAM does not count as a normal.
	if kpis.SplitNormals.Games != 3 {
		t.Errorf("normals split games = %d, want 3", kpis.SplitNormals.Games)
	}
}

func TestAggregateTopChampions(t *testing.T) {
	rows := []FeatureRow{
		simpleRow("Zed", 420, true),
		simpleRow("Zed", 420, true),
		simpleRow("Ahri", 420, true),
		simpleRow("Ahri", 420, false),
		simpleRow("Lux", 420, true),
	}

	kpis := Aggregate(rows)

	// Ties on games break alphabetically: Ahri before Zed.
	want := []ChampionGames{
		{Name: "Ahri", Games: 2},
		{Name: "Zed", Games: 2},
		{Name: "Lux", Games: 1},
	}

	if len(kpis.TopChampions) != len(want) {
		t.Fatalf("TopChampions = %+v, want %+v", kpis.TopChampions, want)
	}

	for i, w := range want {
		if kpis.TopChampions[i] != w {
			t.Errorf("TopChampions[%d] = %+v, want %+v", i, kpis.TopChampions[i], w)
		}
	}
}

func TestAggregateTopChampionsCapped(t *testing.T) {
	var rows []FeatureRow
	for i := 0; i < 8; i++ {
		rows = append(rows, simpleRow(fmt.Sprintf("Champ%d", i), 420, true))
	}

	kpis := Aggregate(rows)

	if len(kpis.TopChampions) != topChampionCount {
		t.Errorf("top champions not capped: got %d entries", len(kpis.TopChampions))
	}
}

func TestAggregateRoleDistribution(t *testing.T) {
	rows := []FeatureRow{
		simpleRow("Ahri", 420, true),
		simpleRow("Ahri", 420, true),
		simpleRow("Lux", 420, true),
	}
	rows[2].Role = "SUPPORT"

	kpis := Aggregate(rows)

	want := []RoleGames{{Role: "MIDDLE", Games: 2}, {Role: "SUPPORT", Games: 1}}
	if len(kpis.RoleDistribution) != 2 || kpis.RoleDistribution[0] != want[0] || kpis.RoleDistribution[1] != want[1] {
		t.Errorf("RoleDistribution = %+v, want %+v", kpis.RoleDistribution, want)
	}
}

func TestFavoriteDamageType(t *testing.T) {
	tests := []struct {
		name               string
		phys, magic, truth int
		want               string
	}{
		{name: "magic dominates", phys: 100, magic: 900, truth: 50, want: "MAGIC"},
		{name: "physical wins ties", phys: 500, magic: 500, truth: 0, want: "PHYSICAL"},
		{name: "magic wins tie against true", phys: 0, magic: 500, truth: 500, want: "MAGIC"},
		{name: "true must dominate outright", phys: 100, magic: 100, truth: 101, want: "TRUE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []FeatureRow{{PhysToChamps: tt.phys, MagicToChamps: tt.magic, TrueToChamps: tt.truth}}
			got := favoriteDamageType(rows)
			if got == nil || *got != tt.want {
				t.Errorf("favoriteDamageType = %v, want %q", got, tt.want)
			}
		})
	}

	t.Run("no damage at all", func(t *testing.T) {
		if got := favoriteDamageType([]FeatureRow{{}}); got != nil {
			t.Errorf("favoriteDamageType = %q, want nil", *got)
		}
	})
}

func TestAggregateItemStats(t *testing.T) {
	var rows []FeatureRow

	// Item 3089 in 10 games with 9 wins: qualifies for win records.
	for i := 0; i < 10; i++ {
		r := simpleRow("Ahri", 420, i > 0)
		r.ItemsFinal = []int{3089}
		rows = append(rows, r)
	}

	// Item 3031 in 9 games: popular but below the record threshold.
	for i := 0; i < 9; i++ {
		r := simpleRow("Jinx", 420, true)
		r.ItemsFinal = []int{3031}
		rows = append(rows, r)
	}

	kpis := Aggregate(rows)

	if len(kpis.FavoriteItems) != 2 {
		t.Fatalf("FavoriteItems = %+v", kpis.FavoriteItems)
	}

	if kpis.FavoriteItems[0] != (ItemGames{ItemID: 3089, Games: 10}) {
		t.Errorf("FavoriteItems[0] = %+v", kpis.FavoriteItems[0])
	}

	if len(kpis.BestItems) != 1 || kpis.BestItems[0].ItemID != 3089 {
		t.Fatalf("BestItems = %+v, want only the 10-game item", kpis.BestItems)
	}

	if !almostEqual(kpis.BestItems[0].Winrate, 0.9) {
		t.Errorf("BestItems[0].Winrate = %v, want 0.9", kpis.BestItems[0].Winrate)
	}

	// With a single qualifying item the two ends of the ranking coincide.
	if len(kpis.WorstItems) != 1 || kpis.WorstItems[0].ItemID != 3089 {
		t.Errorf("WorstItems = %+v, want the same single item", kpis.WorstItems)
	}
}

func TestAggregateFavoriteSpell(t *testing.T) {
	rows := []FeatureRow{
		{Spell1: 4, Spell2: 14},
		{Spell1: 4, Spell2: 12},
		{Spell1: 7, Spell2: 4},
	}

	kpis := Aggregate(rows)

	if kpis.FavoriteSummonerSpell == nil || *kpis.FavoriteSummonerSpell != 4 {
		t.Errorf("FavoriteSummonerSpell = %v, want 4", kpis.FavoriteSummonerSpell)
	}
}

func TestAggregateDuoStats(t *testing.T) {
	var rows []FeatureRow

	// Mate A: 6 games, 5 wins. Mate B: 6 games, 2 wins. Mate C: 2 games.
	for i := 0; i < 6; i++ {
		r := simpleRow("Ahri", 420, i < 5)
		r.Teammates = []string{"P-A"}
		r.TeammateNames = map[string]string{"P-A": "Alice"}
		rows = append(rows, r)
	}

	for i := 0; i < 6; i++ {
		r := simpleRow("Ahri", 420, i < 2)
		r.Teammates = []string{"P-B"}
		r.TeammateNames = map[string]string{"P-B": "Bob"}
		rows = append(rows, r)
	}

	for i := 0; i < 2; i++ {
		r := simpleRow("Ahri", 420, true)
		r.Teammates = []string{"P-C"}
		r.TeammateNames = map[string]string{"P-C": "Cara"}
		rows = append(rows, r)
	}

	kpis := Aggregate(rows)

	// 6-game tie between A and B breaks on puuid.
	if kpis.DuoMostPlayed == nil || kpis.DuoMostPlayed.MatePUUID != "P-A" || kpis.DuoMostPlayed.Name != "Alice" {
		t.Errorf("DuoMostPlayed = %+v", kpis.DuoMostPlayed)
	}

	if kpis.DuoBest == nil || kpis.DuoBest.MatePUUID != "P-A" {
		t.Errorf("DuoBest = %+v, want Alice", kpis.DuoBest)
	}

	if kpis.DuoWorst == nil || kpis.DuoWorst.MatePUUID != "P-B" {
		t.Errorf("DuoWorst = %+v, want Bob", kpis.DuoWorst)
	}

	// Cara's two games are below the record threshold.
	if kpis.DuoBest.MatePUUID == "P-C" || kpis.DuoWorst.MatePUUID == "P-C" {
		t.Error("duo records should ignore mates with too few games")
	}
}

func TestAggregateDuoBelowThreshold(t *testing.T) {
	rows := []FeatureRow{simpleRow("Ahri", 420, true)}
	rows[0].Teammates = []string{"P-A"}
	rows[0].TeammateNames = map[string]string{"P-A": "Alice"}

	kpis := Aggregate(rows)

	if kpis.DuoMostPlayed == nil || kpis.DuoMostPlayed.MatePUUID != "P-A" {
		t.Errorf("DuoMostPlayed = %+v", kpis.DuoMostPlayed)
	}

	if kpis.DuoBest != nil || kpis.DuoWorst != nil {
		t.Errorf("best/worst duos should be null under the game threshold, got %+v / %+v", kpis.DuoBest, kpis.DuoWorst)
	}
}

func TestAggregateChampionWinrates(t *testing.T) {
	rows := []FeatureRow{
		simpleRow("Ahri", 420, true),
		simpleRow("Ahri", 420, false),
		simpleRow("Lux", 420, true),
	}

	rows[0].FirstBloodInvolved = true
	rows[0].TeamFirstBlood = true
	rows[1].TeamFirstBlood = true

	kpis := Aggregate(rows)

	if len(kpis.ChampionWinrates) != 2 {
		t.Fatalf("ChampionWinrates = %+v", kpis.ChampionWinrates)
	}

	ahri := kpis.ChampionWinrates[0]
	if ahri.Name != "Ahri" || ahri.Games != 2 || !almostEqual(ahri.Winrate, 0.5) {
		t.Errorf("ahri record = %+v", ahri)
	}

	if ahri.WinrateWhenFBSelf == nil || !almostEqual(*ahri.WinrateWhenFBSelf, 1.0) {
		t.Errorf("WinrateWhenFBSelf = %v, want 1.0", ahri.WinrateWhenFBSelf)
	}

	if ahri.WinrateWhenTeamFB == nil || !almostEqual(*ahri.WinrateWhenTeamFB, 0.5) {
		t.Errorf("WinrateWhenTeamFB = %v, want 0.5", ahri.WinrateWhenTeamFB)
	}

	lux := kpis.ChampionWinrates[1]
	if lux.WinrateWhenFBSelf != nil || lux.WinrateWhenTeamFB != nil {
		t.Errorf("lux conditionals should be null without qualifying games: %+v", lux)
	}
}

func TestAggregateConditionalWinrates(t *testing.T) {
	rows := []FeatureRow{
		simpleRow("Ahri", 420, true),
		simpleRow("Ahri", 420, true),
		simpleRow("Ahri", 420, false),
	}

	rows[0].TeamFirstDragon = true
	rows[2].TeamFirstDragon = true

	kpis := Aggregate(rows)

	if kpis.WhenFirstDragon.Games != 2 || kpis.WhenFirstDragon.Winrate == nil || !almostEqual(*kpis.WhenFirstDragon.Winrate, 0.5) {
		t.Errorf("WhenFirstDragon = %+v", kpis.WhenFirstDragon)
	}

	if kpis.WhenFirstBaron.Games != 0 || kpis.WhenFirstBaron.Winrate != nil {
		t.Errorf("WhenFirstBaron = %+v, want empty with null winrate", kpis.WhenFirstBaron)
	}
}

// TestAggregateDeterministic re-runs the aggregation over the same rows in
// reverse order and expects byte-identical JSON, which is what makes
// re-computation of a stored recap an idempotent overwrite.
func TestAggregateDeterministic(t *testing.T) {
	var rows []FeatureRow

	for i := 0; i < 20; i++ {
		r := simpleRow(fmt.Sprintf("Champ%d", i%6), 420+20*(i%2), i%3 == 0)
		r.ItemsFinal = []int{3089 + i%3, 3031}
		r.Spell1 = 4
		r.Spell2 = 14 - i%2
		r.Teammates = []string{fmt.Sprintf("P-%d", i%4)}
		r.TeammateNames = map[string]string{fmt.Sprintf("P-%d", i%4): fmt.Sprintf("Mate%d", i%4)}
		r.FirstBloodInvolved = i%5 == 0
		r.TeamFirstDragon = i%2 == 0
		rows = append(rows, r)
	}

	reversed := make([]FeatureRow, len(rows))
	for i, r := range rows {
		reversed[len(rows)-1-i] = r
	}

	a, err := json.Marshal(Aggregate(rows))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	b, err := json.Marshal(Aggregate(reversed))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if !bytes.Equal(a, b) {
		t.Errorf("aggregation depends on row order:\n%s\nvs\n%s", a, b)
	}
}
