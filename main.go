// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	settingsPath string
	dataDirFlag  string
	apiKey       string
	forceUpload  bool
	forceAttach  bool
	maxUploads   int
)

var rootCmd = &cobra.Command{
	Use:   "helpsync",
	Short: "Mirror a help-center corpus into a vector store",
	Long: `helpsync keeps a local markdown mirror of a help-center corpus in sync
with a file-upload service and a vector-store index. Each stage (fetch,
upload, attach) is idempotent and independently re-runnable; failures are
recorded per article and retried on the next run.`,
	Run: func(cmd *cobra.Command, args []string) {
		env := mustEnv(true)
		defer env.cleanup()
		ctx := context.Background()

		if _, err := env.scraper.Run(ctx, env.settings.CategoryIDs); err != nil {
			env.log.Errorw("fetch stage error", "error", err)
		}
		if _, _, err := env.uploader.Run(ctx, forceUpload); err != nil {
			env.log.Errorw("upload stage error", "error", err)
		}
		if _, _, err := env.attacher.Run(ctx, forceAttach); err != nil {
			env.log.Errorw("attach stage error", "error", err)
		}

		printReport(env)
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Enumerate the corpus and refresh local artifacts",
	Run: func(cmd *cobra.Command, args []string) {
		env := mustEnv(false)
		defer env.cleanup()
		if _, err := env.scraper.Run(context.Background(), env.settings.CategoryIDs); err != nil {
			env.log.Errorw("fetch stage error", "error", err)
		}
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload stale artifacts to the file service",
	Run: func(cmd *cobra.Command, args []string) {
		env := mustEnv(true)
		defer env.cleanup()
		if _, _, err := env.uploader.Run(context.Background(), forceUpload); err != nil {
			env.log.Errorw("upload stage error", "error", err)
		}
	},
}

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Attach uploaded files to the vector store",
	Run: func(cmd *cobra.Command, args []string) {
		env := mustEnv(true)
		defer env.cleanup()
		if _, _, err := env.attacher.Run(context.Background(), forceAttach); err != nil {
			env.log.Errorw("attach stage error", "error", err)
		}
		printReport(env)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the attachment status report without touching the network",
	Run: func(cmd *cobra.Command, args []string) {
		env := mustEnv(false)
		defer env.cleanup()
		printReport(env)
	},
}

// runEnv holds the explicitly wired collaborators for one invocation. All
// clients are constructed here and passed in; nothing reaches for a global.
type runEnv struct {
	settings *Settings
	log      *zap.SugaredLogger
	cleanup  func()
	store    *Store
	scraper  *Scraper
	uploader *Uploader
	attacher *Attacher
}

func mustEnv(needAPIKey bool) *runEnv {
	settings, err := loadSettings(settingsPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if dataDirFlag != "" {
		settings.DataDirectory = dataDirFlag
	}
	if maxUploads > 0 {
		settings.MaxUploads = maxUploads
	}

	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if needAPIKey && apiKey == "" {
		log.Fatal("API key required: use --api-key or the OPENAI_API_KEY environment variable")
	}

	logger, cleanup, err := newLogger(settings.LogDirectory, settings.LogLevel)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	store := NewStore(settings.DataDirectory, logger)
	hc := NewHelpCenterClient(settings.BaseURL)
	oc := NewUploadClient(apiKey)

	uploader := NewUploader(oc, store, settings.DataDirectory, settings.UploadPurpose, settings.MaxUploads, logger)
	return &runEnv{
		settings: settings,
		log:      logger,
		cleanup:  cleanup,
		store:    store,
		scraper:  NewScraper(hc, NewConverter(), store, settings.DataDirectory, settings.CategoryConcurrency, settings.SectionConcurrency, logger),
		uploader: uploader,
		attacher: NewAttacher(oc, uploader, store, settings.VectorStoreName, logger),
	}
}

func printReport(env *runEnv) {
	state, err := env.store.Load()
	if err != nil {
		env.log.Errorw("could not load metadata for report", "error", err)
		return
	}
	WriteStatusReport(os.Stdout, state)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "settings.yaml", "Path to the YAML settings file")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Override the corpus data directory")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for the upload and index services")
	rootCmd.PersistentFlags().BoolVar(&forceUpload, "force-upload", false, "Re-upload every artifact regardless of watermarks")
	rootCmd.PersistentFlags().BoolVar(&forceAttach, "force-attach", false, "Re-attach every uploaded file regardless of watermarks")
	rootCmd.PersistentFlags().IntVar(&maxUploads, "max-uploads", 0, "Cap the number of uploads attempted in one run (0 = unlimited)")

	rootCmd.AddCommand(fetchCmd, uploadCmd, attachCmd, statusCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
