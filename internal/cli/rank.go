package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"carmatch/internal/app"
	"carmatch/internal/model"
	"carmatch/internal/service"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rank [query]",
		Short: "Rank the catalog for one query",
		Long:  "Run retrieval and ranking once with the given constraints and print the top vehicles.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRank,
	}
	addRankFlags(cmd)
	RootCmd.AddCommand(cmd)
}

func addRankFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("top", "n", 0, "Number of results (default: $RANK_TOP_N)")
	cmd.Flags().Float64("price-min", 0, "Lower price bound in baht")
	cmd.Flags().Float64("price-max", 0, "Upper price bound in baht")
	cmd.Flags().String("make", "", "Make, comma separated for several")
	cmd.Flags().String("body", "", "Body type: sedan, suv, pickup, hatchback, mpv")
	cmd.Flags().String("transmission", "", "AT or MT")
}

// rankPreferences builds the constraints given on the command line.
func rankPreferences(cmd *cobra.Command) *model.Preferences {
	prefs := model.NewPreferences(1)
	lo, _ := cmd.Flags().GetFloat64("price-min")
	hi, _ := cmd.Flags().GetFloat64("price-max")
	var lower, upper *float64
	if lo > 0 {
		lower = &lo
	}
	if hi > 0 {
		upper = &hi
	}
	if lower != nil || upper != nil {
		prefs.SetPrice(lower, upper)
	}
	mk, _ := cmd.Flags().GetString("make")
	prefs.Make = strings.ToLower(strings.TrimSpace(mk))
	body, _ := cmd.Flags().GetString("body")
	prefs.Body = service.NormalizeBody(body)
	tr, _ := cmd.Flags().GetString("transmission")
	prefs.Transmission = strings.ToUpper(strings.TrimSpace(tr))
	return prefs
}

func runRank(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	top, _ := cmd.Flags().GetInt("top")
	if top <= 0 {
		top = cfg.Ranking.TopN
	}
	text := strings.Join(args, " ")
	prefs := rankPreferences(cmd)

	backend, err := app.Open(cmd.Context(), cfg, log)
	if err != nil {
		exitErr("open catalog", err)
	}
	defer backend.Close()

	ranker := service.NewRanker(backend.Catalog, backend.AI, cfg.Ranking, log)
	results := ranker.Rank(cmd.Context(), service.RankQuery(text, prefs), prefs, service.RankOptions{TopN: top})

	summaries := make([]model.VehicleSummary, len(results))
	for i, sv := range results {
		summaries[i] = service.Summarize(i+1, sv, "")
	}

	if formatFlag == "json" {
		b, _ := json.MarshalIndent(summaries, "", "  ")
		fmt.Println(string(b))
		return
	}
	if len(summaries) == 0 {
		fmt.Println("no match")
		return
	}
	for _, s := range summaries {
		fmt.Printf("%d. [%s] %s  %s บาท  score=%.4f\n   %s | %s | %s | %s | %s\n",
			s.Rank, s.ID, s.Name, service.PriceText(float64(s.Price)), s.Score,
			s.EngineText, s.HPText, s.FuelText, s.GearsText, s.DriveText)
	}
}
