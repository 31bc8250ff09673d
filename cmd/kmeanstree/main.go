package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"runtime/pprof"
	"time"

	"github.com/ar90n/kmeanstree"
	"github.com/ar90n/kmeanstree/cluster"
	"github.com/ar90n/kmeanstree/flat"
	"github.com/ar90n/kmeanstree/internal/export"
	"github.com/ar90n/kmeanstree/internal/render"
	"github.com/ar90n/kmeanstree/linalg"
	"github.com/ar90n/kmeanstree/metric"
	"github.com/ar90n/kmeanstree/vector"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"
)

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

func startProfile(profileOutputName string) (func(), error) {
	if profileOutputName == "" {
		return func() {}, nil
	}

	f, err := os.Create(profileOutputName)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

func openInput(inputName string) (io.ReadCloser, error) {
	if inputName == "" || inputName == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(inputName)
}

func createOutput(outputName string) (io.WriteCloser, error) {
	if outputName == "" || outputName == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(outputName)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func loadFeatures[T linalg.Number](inputName string, nDim uint, format string) ([]vector.Vector[T], error) {
	r, err := openInput(inputName)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return readFeatures[T](r, nDim, format)
}

func randomFeatures[T linalg.Number](r *rand.Rand, n int, nDim uint, scale float64) []vector.Vector[T] {
	features := make([]vector.Vector[T], n)
	for i := range features {
		values := make([]T, nDim)
		for j := range values {
			values[j] = T(scale * r.Float64())
		}
		features[i] = vector.New(values...)
	}
	return features
}

func buildTree[T linalg.Number](ctx context.Context, cfg Config, logger *slog.Logger, features []vector.Vector[T]) (*kmeanstree.Tree[T], error) {
	m, err := metric.ByName[T](cfg.Metric)
	if err != nil {
		return nil, err
	}

	tree, err := kmeanstree.NewTree(cfg.Dim, cfg.K, cfg.Depth,
		cluster.WithMetric(m),
		cluster.WithMaxIterations[T](cfg.MaxIterations),
		cluster.WithMaxGoroutines[T](cfg.MaxGoroutines),
		cluster.WithLogger[T](logger),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("adding features", "count", len(features))
	for i, f := range features {
		if err := tree.Add(f); err != nil {
			return nil, errors.Wrapf(err, "adding feature %d", i)
		}
	}

	logger.Info("calculating tree", "k", cfg.K, "depth", cfg.Depth, "metric", cfg.Metric)
	begin := time.Now()
	if err := tree.Calculate(ctx); err != nil {
		return nil, err
	}
	logger.Info("done",
		"elapsed", time.Since(begin),
		"levels", tree.Levels(),
		"leaves", tree.Width(),
	)
	return tree, nil
}

// setup resolves the configuration and logger shared by every command.
func setup(c *cli.Context) (Config, *slog.Logger, error) {
	cfg, err := resolveConfig(c)
	if err != nil {
		return cfg, nil, err
	}

	logger, err := newLogger(c.App.ErrWriter, cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func dispatch(c *cli.Context, run func(Config, *slog.Logger) error) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}

	stop, err := startProfile(c.String("profile-output"))
	if err != nil {
		return err
	}
	defer stop()

	return run(cfg, logger)
}

func searchAction(c *cli.Context) error {
	return dispatch(c, func(cfg Config, logger *slog.Logger) error {
		input, format := c.String("input"), c.String("format")
		switch cfg.DType {
		case "float32":
			return search[float32](c.Context, cfg, logger, input, format, os.Stdin, c.App.Writer)
		case "float64":
			return search[float64](c.Context, cfg, logger, input, format, os.Stdin, c.App.Writer)
		default:
			return search[uint8](c.Context, cfg, logger, input, format, os.Stdin, c.App.Writer)
		}
	})
}

func search[T linalg.Number](ctx context.Context, cfg Config, logger *slog.Logger, inputName, format string, queries io.Reader, w io.Writer) error {
	if inputName == "" {
		return errors.New("search needs --input for the base features")
	}

	features, err := loadFeatures[T](inputName, cfg.Dim, format)
	if err != nil {
		return err
	}

	tree, err := buildTree(ctx, cfg, logger, features)
	if err != nil {
		return err
	}
	items := newItemIndex(features)

	r := bufio.NewReader(queries)
	for {
		query, err := readQuery[T](r, cfg.Dim)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var neighbors []kmeanstree.Candidate[T]
		switch {
		case query.Neighbors == 0:
		case query.MaxCandidates == 0 && query.Neighbors == 1:
			nn, err := tree.NearestNeighbor(query.Feature, nil)
			if err != nil {
				return err
			}
			neighbors = []kmeanstree.Candidate[T]{{Vector: nn}}
		default:
			neighbors, err = tree.Search(ctx, query.Feature, query.Neighbors, query.MaxCandidates)
			if err != nil {
				return err
			}
		}

		ids := make([]int, 0, len(neighbors))
		for _, n := range neighbors {
			ids = append(ids, items.Lookup(n.Vector))
		}
		if err := writeNeighbors(w, ids); err != nil {
			return err
		}
	}
}

type benchReport struct {
	Features        int
	Queries         int
	BuildTime       time.Duration
	QueryTime       time.Duration
	MeanComparisons float64
	Recall          float64
}

func benchAction(c *cli.Context) error {
	return dispatch(c, func(cfg Config, logger *slog.Logger) error {
		var (
			report benchReport
			err    error
		)
		opts := benchOptions{
			Input:   c.String("input"),
			Format:  c.String("format"),
			Points:  c.Int("points"),
			Queries: c.Int("queries"),
			Seed:    c.Int64("seed"),
			Scale:   c.Float64("scale"),
		}
		switch cfg.DType {
		case "float32":
			report, err = bench[float32](c.Context, cfg, logger, opts)
		case "float64":
			report, err = bench[float64](c.Context, cfg, logger, opts)
		default:
			report, err = bench[uint8](c.Context, cfg, logger, opts)
		}
		if err != nil {
			return err
		}

		logger.Info("benchmark",
			"features", report.Features,
			"queries", report.Queries,
			"build", report.BuildTime,
			"query", report.QueryTime,
			"comparisons", report.MeanComparisons,
			"recall@1", report.Recall,
		)
		return nil
	})
}

type benchOptions struct {
	Input   string
	Format  string
	Points  int
	Queries int
	Seed    int64
	Scale   float64
}

func bench[T linalg.Number](ctx context.Context, cfg Config, logger *slog.Logger, opts benchOptions) (benchReport, error) {
	r := rand.New(rand.NewSource(opts.Seed))

	var (
		features []vector.Vector[T]
		err      error
	)
	if opts.Input != "" {
		features, err = loadFeatures[T](opts.Input, cfg.Dim, opts.Format)
		if err != nil {
			return benchReport{}, err
		}
	} else {
		features = randomFeatures[T](r, opts.Points, cfg.Dim, opts.Scale)
	}
	if len(features) == 0 {
		return benchReport{}, errors.New("no features to benchmark")
	}

	begin := time.Now()
	tree, err := buildTree(ctx, cfg, logger, features)
	if err != nil {
		return benchReport{}, err
	}
	report := benchReport{
		Features:  len(features),
		Queries:   opts.Queries,
		BuildTime: time.Since(begin),
	}

	m, err := metric.ByName[T](cfg.Metric)
	if err != nil {
		return benchReport{}, err
	}
	exact := flat.NewIndex(m)
	exact.SetMaxGoroutines(cfg.MaxGoroutines)
	for _, f := range features {
		if err := exact.Add(f); err != nil {
			return benchReport{}, err
		}
	}

	hits := 0
	comparisons := uint(0)
	queries := randomFeatures[T](r, opts.Queries, cfg.Dim, opts.Scale)
	for _, q := range queries {
		queryBegin := time.Now()
		nn, err := tree.NearestNeighbor(q, &comparisons)
		if err != nil {
			return benchReport{}, err
		}
		report.QueryTime += time.Since(queryBegin)

		expected, err := exact.Nearest(ctx, q)
		if err != nil {
			return benchReport{}, err
		}
		if m.CalcDistance(q, nn) <= expected.Distance {
			hits++
		}
	}

	if 0 < len(queries) {
		report.MeanComparisons = float64(comparisons) / float64(len(queries))
		report.Recall = float64(hits) / float64(len(queries))
	}
	return report, nil
}

func renderAction(c *cli.Context) error {
	return dispatch(c, func(cfg Config, logger *slog.Logger) error {
		opts := render.DefaultOptions()
		opts.Width = c.Int("width")
		opts.Height = c.Int("height")

		var features []vector.Vector[float64]
		if input := c.String("input"); input != "" {
			var err error
			features, err = loadFeatures[float64](input, cfg.Dim, c.String("format"))
			if err != nil {
				return err
			}
		} else {
			r := rand.New(rand.NewSource(c.Int64("seed")))
			features = randomFeatures[float64](r, c.Int("points"), cfg.Dim, 1)
		}

		tree, err := buildTree(c.Context, cfg, logger, features)
		if err != nil {
			return err
		}

		w, err := createOutput(c.String("output"))
		if err != nil {
			return err
		}
		defer w.Close()

		if !c.IsSet("path") {
			return render.Leaves(w, tree, opts)
		}

		path, err := parsePath(c.String("path"))
		if err != nil {
			return err
		}
		node, err := render.Descend(tree.Root(), path)
		if err != nil {
			return err
		}
		return render.Cluster(w, node, opts)
	})
}

func graphAction(c *cli.Context) error {
	return dispatch(c, func(cfg Config, logger *slog.Logger) error {
		format, err := export.ParseFormat(c.String("graph-format"))
		if err != nil {
			return err
		}

		var features []vector.Vector[float64]
		if input := c.String("input"); input != "" {
			features, err = loadFeatures[float64](input, cfg.Dim, c.String("format"))
			if err != nil {
				return err
			}
		} else {
			r := rand.New(rand.NewSource(c.Int64("seed")))
			features = randomFeatures[float64](r, c.Int("points"), cfg.Dim, 1)
		}

		tree, err := buildTree(c.Context, cfg, logger, features)
		if err != nil {
			return err
		}

		w, err := createOutput(c.String("output"))
		if err != nil {
			return err
		}
		defer w.Close()

		return export.Graph(w, tree, format)
	})
}

func withCommonFlags(flags ...cli.Flag) []cli.Flag {
	common := append(configFlags(),
		&cli.StringFlag{
			Name:  "input",
			Usage: "feature file, - for stdin",
		},
		&cli.StringFlag{
			Name:  "format",
			Value: "binary",
			Usage: "feature file format: binary or csv",
		},
		&cli.StringFlag{
			Name:  "profile-output",
			Usage: "cpu profile output file",
		},
	)
	return append(common, flags...)
}

func generatorFlags(points int) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "points",
			Value: points,
			Usage: "number of random features when no input is given",
		},
		&cli.Int64Flag{
			Name:  "seed",
			Value: 1,
			Usage: "random seed",
		},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "kmeanstree",
		HelpName: "kmeanstree",
		Usage:    "build and query hierarchical k-means trees",
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "answer binary queries read from stdin",
				UsageText: "kmeanstree search --input base.bin [command options] < queries.bin",
				Action:    searchAction,
				Flags:     withCommonFlags(),
			},
			{
				Name:      "bench",
				Usage:     "measure build time, comparisons and recall",
				UsageText: "kmeanstree bench [command options]",
				Action:    benchAction,
				Flags: withCommonFlags(append(generatorFlags(10000),
					&cli.IntFlag{
						Name:  "queries",
						Value: 1000,
						Usage: "number of random queries",
					},
					&cli.Float64Flag{
						Name:  "scale",
						Value: 255,
						Usage: "upper bound of random components",
					},
				)...),
			},
			{
				Name:      "render",
				Usage:     "draw the leaf clusters of 2-d data as png",
				UsageText: "kmeanstree render [command options]",
				Action:    renderAction,
				Flags: withCommonFlags(append(generatorFlags(1000),
					&cli.StringFlag{
						Name:  "output",
						Value: "clusters.png",
						Usage: "output file, - for stdout",
					},
					&cli.StringFlag{
						Name:  "path",
						Usage: "comma separated sub-cluster indices; draws the sub-clusters of that node instead of every leaf",
					},
					&cli.IntFlag{
						Name:  "width",
						Value: 640,
						Usage: "image width",
					},
					&cli.IntFlag{
						Name:  "height",
						Value: 480,
						Usage: "image height",
					},
				)...),
			},
			{
				Name:      "graph",
				Usage:     "export the cluster hierarchy with graphviz",
				UsageText: "kmeanstree graph [command options]",
				Action:    graphAction,
				Flags: withCommonFlags(append(generatorFlags(200),
					&cli.StringFlag{
						Name:  "output",
						Value: "-",
						Usage: "output file, - for stdout",
					},
					&cli.StringFlag{
						Name:  "graph-format",
						Value: "dot",
						Usage: "dot, svg, png or jpg",
					},
				)...),
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("kmeanstree failed", "error", err)
		os.Exit(1)
	}
}
