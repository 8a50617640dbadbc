package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsc-eco/vsc-launchpad/schemas"
	"github.com/vsc-eco/vsc-launchpad/services/indexer"
)

// defaultScenario launches a market and trades it across graduation:
// the fourth 10k-token buy pushes the reserve over the 100k threshold,
// and the final buy settles against the AMM pool.
const defaultScenario = `[
  {"type":"launch","name":"Stonk Token","symbol":"stonk","creator":"user:creator",
   "invariant_k":"3000000000000","asset_rate":"10000",
   "graduation_threshold":"100000000000","curve_supply":"1000000000000000000000000"},
  {"type":"buy","market":"stonk","trader":"user:alice","token_amount":"10000000000000000000000","asset_bound":"50000000000"},
  {"type":"buy","market":"stonk","trader":"user:bob","token_amount":"10000000000000000000000","asset_bound":"50000000000"},
  {"type":"sell","market":"stonk","trader":"user:alice","token_amount":"1000000000000000000000","asset_bound":"0"},
  {"type":"buy","market":"stonk","trader":"user:alice","token_amount":"10000000000000000000000","asset_bound":"50000000000"},
  {"type":"buy","market":"stonk","trader":"user:carol","token_amount":"12000000000000000000000","asset_bound":"50000000000"},
  {"type":"buy","market":"stonk","trader":"user:dave","token_amount":"100000000000000000000","asset_bound":"50000000000"}
]`

var (
	scenarioPath string
	listenAddr   string
)

var rootCmd = &cobra.Command{
	Use:   "vsc-launchpad",
	Short: "Bonding-curve token launchpad simulation",
	Long:  `Launch curve markets, trade them to graduation and serve the indexer API over a demo session.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// optional .env for LAUNCHPAD_ADDR etc.
		_ = godotenv.Load()
		if listenAddr == "" {
			listenAddr = os.Getenv("LAUNCHPAD_ADDR")
		}
		if listenAddr == "" {
			listenAddr = ":8080"
		}
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted launch-and-graduate scenario",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer log.Sync()

		insts, err := loadScenario()
		if err != nil {
			return err
		}
		sess, err := newSession(log)
		if err != nil {
			return err
		}
		if err := sess.run(cmd.Context(), insts); err != nil {
			return err
		}

		for _, m := range sess.lp.Markets() {
			fmt.Printf("%s: state=%s token_reserve=%s asset_reserve=%s pair=%s\n",
				m.Symbol(), m.State(), m.TokenReserve().Dec(), m.AssetReserve().Dec(), m.PairAddress())
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scenario and serve the indexer HTTP/WebSocket API",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer log.Sync()

		insts, err := loadScenario()
		if err != nil {
			return err
		}
		sess, err := newSession(log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// subscribe before running so the indexer sees every event
		events := sess.lp.Bus().Subscribe()
		svc := indexer.NewService(indexer.Config{
			Addr:          listenAddr,
			AssetDecimals: 6,
			Logger:        log,
		})

		errCh := make(chan error, 1)
		go func() { errCh <- svc.Run(ctx, events) }()

		if err := sess.run(ctx, insts); err != nil {
			stop()
			<-errCh
			return err
		}
		log.Info("scenario complete, serving", zap.String("addr", listenAddr))

		err = <-errCh
		if ctx.Err() != nil {
			return nil // clean shutdown on signal
		}
		return err
	},
}

func loadScenario() ([]schemas.Instruction, error) {
	data := []byte(defaultScenario)
	if scenarioPath != "" {
		var err error
		data, err = os.ReadFile(scenarioPath)
		if err != nil {
			return nil, fmt.Errorf("read scenario: %w", err)
		}
	}
	return schemas.ParseScenario(data)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&scenarioPath, "scenario", "", "path to a JSON scenario file (default: built-in demo)")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "addr", "", "indexer listen address (or LAUNCHPAD_ADDR)")
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
