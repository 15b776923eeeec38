package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/muenster-imaging/tabblesync/config"
	"github.com/muenster-imaging/tabblesync/db"
	"github.com/muenster-imaging/tabblesync/logger"
	"github.com/muenster-imaging/tabblesync/mapr"
	"github.com/muenster-imaging/tabblesync/omero"
	"github.com/muenster-imaging/tabblesync/reconcile"
	"github.com/muenster-imaging/tabblesync/run"
	"github.com/muenster-imaging/tabblesync/tabbles"
)

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Annotate OMERO images from their Tabbles tags",
	Long: `Annotate a Project, Dataset or list of Images from Tabbles.

For every addressed image the original import path is looked up, the tag
hierarchy Tabbles keeps for that file is extracted, and the result is
written back to OMERO as tags and key/value map annotations.

When the omero-web config defines OMERO.mapr namespaces, key/value pairs
are grouped under those namespaces; otherwise everything lands in the
default client map annotation namespace.

Examples:
  tabblesync run --type Dataset --ids 5,6
  tabblesync run --type Project --ids 1 --policy overwrite
  tabblesync run --type Image --ids 101,102 --single-tags=false`,
	RunE: runSync,
}

var (
	runDataType   string
	runIDs        []int64
	runSingleTags bool
	runPolicy     string
	runDatabase   string
)

func init() {
	RunCmd.Flags().StringVar(&runDataType, "type", run.DataTypeDataset, "Target container type: Project, Dataset or Image")
	RunCmd.Flags().Int64SliceVar(&runIDs, "ids", nil, "Target ids (comma-separated)")
	RunCmd.Flags().BoolVar(&runSingleTags, "single-tags", true, "Also transfer bare Tabbles tags as OMERO tags")
	RunCmd.Flags().StringVar(&runPolicy, "policy", "append", "What to do with existing annotations: append or overwrite")
	RunCmd.Flags().StringVar(&runDatabase, "database", "", "Tabbles database to query (overrides config)")
	_ = RunCmd.MarkFlagRequired("ids")
}

func runSync(cmd *cobra.Command, args []string) error {
	log := logger.Logger

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if runDatabase != "" {
		cfg.Tabbles.Database = runDatabase
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	policy, err := reconcile.ParsePolicy(runPolicy)
	if err != nil {
		return err
	}

	params := run.Params{
		DataType:          runDataType,
		IDs:               runIDs,
		ProcessSingleTags: runSingleTags,
		Policy:            policy,
	}
	if err := params.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	directory, err := mapr.Namespaces(cfg.Mapr.ConfigPath)
	if err != nil {
		return err
	}

	conn, err := db.Open(cfg.Tabbles.Driver, cfg.Tabbles.DSN, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	extractor, err := tabbles.NewClient(conn, cfg.Tabbles.Database, log)
	if err != nil {
		return err
	}

	client, err := omero.NewClient(cfg.OMERO, log)
	if err != nil {
		return err
	}
	if err := client.Login(ctx, cfg.OMERO.Username, cfg.OMERO.Password); err != nil {
		return err
	}

	engine := reconcile.NewEngine(client, directory, log)
	runner := run.NewRunner(client, extractor, engine, directory, log)

	totals, err := runner.Run(ctx, params)
	if err != nil {
		pterm.Error.Printf("Sync aborted: %v\n", err)
		return err
	}

	pterm.Success.Println(totals.Summary())
	return nil
}
