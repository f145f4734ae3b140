// Package main provides the helloworld training CLI.
//
// Usage:
//
//	helloworld train -model mlp -epochs 3
//	helloworld test -model resnet -data ./data
//	helloworld args -args trainer.yaml
//	helloworld version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/born-ml/helloworld/classifier"
	"github.com/born-ml/helloworld/datamodule"
	"github.com/born-ml/helloworld/internal/accelerator"
	"github.com/born-ml/helloworld/internal/autodiff"
	"github.com/born-ml/helloworld/internal/backend/cpu"
	"github.com/born-ml/helloworld/trainer"
)

const version = "v0.1.0"

type backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "train":
		err = runTrain(ctx, os.Args[2:])
	case "test":
		err = runTest(ctx, os.Args[2:])
	case "args":
		err = runArgs(os.Args[2:], os.Stdout)
	case "version":
		fmt.Printf("helloworld %s\n", version)
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "helloworld: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "helloworld - image classifier training harness")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  train      Fit a model, then evaluate it on the test split")
	fmt.Fprintln(w, "  test       Evaluate a freshly initialized model on the test split")
	fmt.Fprintln(w, "  args       Print the effective trainer arguments")
	fmt.Fprintln(w, "  version    Show version")
}

// runFlags are shared by train and test.
type runFlags struct {
	model      string
	dataDir    string
	epochs     int
	logEvery   int
	batchSize  int
	workers    int
	seed       uint64
	lr         float64
	argsPath   string
	logDir     string
	accel      string
	logLevel   string
	skipVerify bool

	set map[string]bool // Flags given on the command line
}

func (f *runFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.model, "model", "mlp", "Model to run: mlp (MNIST) or resnet (CIFAR10)")
	fs.StringVar(&f.dataDir, "data", "./data", "Root data directory")
	fs.IntVar(&f.epochs, "epochs", 1, "Number of training epochs")
	fs.IntVar(&f.logEvery, "log-every", 50, "Log metrics every N training batches")
	fs.IntVar(&f.batchSize, "batch-size", 0, "Training batch size (0 = data module default)")
	fs.IntVar(&f.workers, "workers", 0, "Data loader workers (0 = number of CPUs)")
	fs.Uint64Var(&f.seed, "seed", 42, "Seed for weight initialization, splits and shuffling")
	fs.Float64Var(&f.lr, "lr", 0, "Learning rate (0 = model default)")
	fs.StringVar(&f.argsPath, "args", "", "YAML file with trainer arguments")
	fs.StringVar(&f.logDir, "log-dir", "", "Write metrics.csv and hparams.yaml under this directory")
	fs.StringVar(&f.accel, "accelerator", "", "Override the accelerator: auto, cpu or gpu")
	fs.StringVar(&f.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	fs.BoolVar(&f.skipVerify, "skip-checksum", false, "Accept downloads without MD5 verification")
}

func (f *runFlags) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// trainerArgs loads -args when given and applies the command line on top.
func (f *runFlags) trainerArgs(logger *slog.Logger) (*trainer.Args, error) {
	args, err := loadArgs(f.argsPath, f.set, f.logEvery, f.epochs)
	if err != nil {
		return nil, err
	}
	if f.accel != "" {
		args.Accelerator = f.accel
	}
	args.Loggers = append(args.Loggers, trainer.NewSlogLogger(logger))
	if f.logDir != "" {
		args.Loggers = append(args.Loggers, trainer.NewCSVLogger(f.logDir, f.model))
	}
	return args, nil
}

// experiment pairs a classifier with the data module it is trained on.
type experiment struct {
	clf *classifier.Classifier[backend]
	dm  datamodule.DataModule[backend]
}

func (f *runFlags) experiment(b backend, logger *slog.Logger) (experiment, error) {
	switch f.model {
	case "mlp":
		dcfg := datamodule.DefaultMNISTConfig()
		dcfg.DataDir = f.dataDir
		dcfg.NumWorkers = f.workers
		dcfg.Seed = f.seed
		dcfg.SkipChecksum = f.skipVerify
		dcfg.Logger = logger
		if f.batchSize > 0 {
			dcfg.BatchSize = f.batchSize
		}
		dm := datamodule.NewMNIST(dcfg, b)

		mcfg := classifier.DefaultMLPConfig()
		if f.lr > 0 {
			mcfg.LR = float32(f.lr)
		}
		return experiment{clf: classifier.NewMLP(dm.InputShape(), mcfg, b), dm: dm}, nil
	case "resnet":
		dcfg := datamodule.DefaultCIFAR10Config()
		dcfg.DataDir = f.dataDir
		dcfg.NumWorkers = f.workers
		dcfg.Seed = f.seed
		dcfg.SkipChecksum = f.skipVerify
		dcfg.Logger = logger
		if f.batchSize > 0 {
			dcfg.BatchSize = f.batchSize
		}
		dm := datamodule.NewCIFAR10(dcfg, b)

		mcfg := classifier.DefaultResNetConfig()
		if f.lr > 0 {
			mcfg.LR = float32(f.lr)
		}
		return experiment{clf: classifier.NewResNet(mcfg, b), dm: dm}, nil
	default:
		return experiment{}, fmt.Errorf("unknown model %q (want mlp or resnet)", f.model)
	}
}

func newBackend() backend {
	return autodiff.New(cpu.NewWithConfig(accelerator.KernelConfig(accelerator.DescribeCPU())))
}

// loadArgs returns the defaults, or the contents of path when given. With a
// file, -log-every and -epochs override it only when set explicitly.
func loadArgs(path string, set map[string]bool, logEvery, epochs int) (*trainer.Args, error) {
	if path == "" {
		return trainer.NewArgs(logEvery, epochs), nil
	}
	args, err := trainer.LoadArgs(path)
	if err != nil {
		return nil, err
	}
	if set["log-every"] {
		args.LogEveryNSteps = logEvery
	}
	if set["epochs"] {
		args.MaxEpochs = epochs
	}
	if err := args.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return args, nil
}

func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// setup parses flags and builds everything a run needs.
func setup(name string, argv []string) (*trainer.Trainer[backend], experiment, *slog.Logger, error) {
	var f runFlags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	f.register(fs)
	if err := fs.Parse(argv); err != nil {
		return nil, experiment{}, nil, err
	}
	f.set = visited(fs)

	logger, err := f.logger()
	if err != nil {
		return nil, experiment{}, nil, err
	}
	args, err := f.trainerArgs(logger)
	if err != nil {
		return nil, experiment{}, nil, err
	}

	trainer.SeedEverything(f.seed)
	b := newBackend()
	exp, err := f.experiment(b, logger)
	if err != nil {
		return nil, experiment{}, nil, err
	}
	tr, err := trainer.New(args, b, trainer.WithLogger(logger))
	if err != nil {
		return nil, experiment{}, nil, err
	}
	return tr, exp, logger, nil
}

func runTrain(ctx context.Context, argv []string) error {
	tr, exp, logger, err := setup("train", argv)
	if err != nil {
		return err
	}
	if err := tr.Fit(ctx, exp.clf, exp.dm); err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	results, err := tr.Test(ctx, exp.clf, exp.dm)
	if err != nil {
		return fmt.Errorf("test: %w", err)
	}
	logger.Info("done", "epochs", tr.Epoch(), "steps", tr.GlobalStep(),
		classifier.MetricTestAccuracy, results[classifier.MetricTestAccuracy])
	return nil
}

func runTest(ctx context.Context, argv []string) error {
	tr, exp, _, err := setup("test", argv)
	if err != nil {
		return err
	}
	results, err := tr.Test(ctx, exp.clf, exp.dm)
	if err != nil {
		return fmt.Errorf("test: %w", err)
	}
	fmt.Printf("%s = %.4f\n", classifier.MetricTestLoss, results[classifier.MetricTestLoss])
	fmt.Printf("%s = %.4f\n", classifier.MetricTestAccuracy, results[classifier.MetricTestAccuracy])
	return nil
}

func runArgs(argv []string, w io.Writer) error {
	fs := flag.NewFlagSet("args", flag.ContinueOnError)
	path := fs.String("args", "", "YAML file with trainer arguments")
	logEvery := fs.Int("log-every", 50, "Log metrics every N training batches")
	epochs := fs.Int("epochs", 1, "Number of training epochs")
	asYAML := fs.Bool("yaml", false, "Print as YAML instead of key = value lines")
	if err := fs.Parse(argv); err != nil {
		return err
	}

	args, err := loadArgs(*path, visited(fs), *logEvery, *epochs)
	if err != nil {
		return err
	}
	if *asYAML {
		return args.WriteYAML(w)
	}
	_, err = fmt.Fprintln(w, args.String())
	return err
}
