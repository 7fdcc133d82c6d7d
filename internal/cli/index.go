package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"carmatch/internal/catalog"
	"carmatch/internal/repository"
	"carmatch/internal/service"
)

func init() {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Fill missing catalog embeddings",
		Long: "Embed every catalog vehicle that has no vector yet. Reads and writes a CSV, " +
			"or updates the vehicles table with --postgres.",
		Args: cobra.NoArgs,
		Run:  runIndex,
	}

	cmd.Flags().String("in", "", "Input catalog CSV (default: $CATALOG_PATH)")
	cmd.Flags().String("out", "", "Output CSV (default: overwrite --in)")
	cmd.Flags().Bool("postgres", false, "Index the PostgreSQL vehicles table instead of a CSV")

	RootCmd.AddCommand(cmd)
}

func runIndex(cmd *cobra.Command, _ []string) {
	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	ai := service.NewOpenAIClient(&cfg.OpenAI, log)
	if !ai.IsEnabled() {
		exitErr("index", service.ErrAIDisabled)
	}

	if usePG, _ := cmd.Flags().GetBool("postgres"); usePG {
		indexPostgres(cmd, cfg.GetPostgreSQLDSN(), cfg.PostgreSQL.MaxConnections, cfg.PostgreSQL.MaxIdleConnections, ai)
		return
	}

	in, _ := cmd.Flags().GetString("in")
	if in == "" {
		in = cfg.Catalog.Path
	}
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = in
	}

	f, err := os.Open(in)
	if err != nil {
		exitErr("open catalog", err)
	}
	table, err := catalog.ReadTable(f)
	f.Close()
	if err != nil {
		exitErr("read catalog", err)
	}

	n, err := catalog.EmbedTable(cmd.Context(), table, ai)
	if err != nil {
		exitErr("embed", err)
	}

	w, err := os.Create(out)
	if err != nil {
		exitErr("create output", err)
	}
	defer w.Close()
	if err := table.Write(w); err != nil {
		exitErr("write output", err)
	}
	fmt.Printf("embedded %d rows, wrote %s\n", n, out)
}

func indexPostgres(cmd *cobra.Command, dsn string, maxConn, maxIdle int, ai catalog.BatchEmbedder) {
	repo, err := repository.NewPostgresRepository(dsn, maxConn, maxIdle)
	if err != nil {
		exitErr("connect", err)
	}
	defer repo.Close()

	vehicles, embeddings, err := repo.LoadVehicles(cmd.Context())
	if err != nil {
		exitErr("load vehicles", err)
	}
	items, err := catalog.EmbedMissing(cmd.Context(), vehicles, embeddings, ai)
	if err != nil {
		exitErr("embed", err)
	}
	if len(items) == 0 {
		fmt.Println("all vehicles already have embeddings")
		return
	}

	success, errs := repo.BatchUpdateEmbeddings(cmd.Context(), items)
	for _, e := range errs {
		fmt.Fprintln(os.Stderr, e)
	}
	fmt.Printf("updated %d of %d vehicles\n", success, len(items))
}
