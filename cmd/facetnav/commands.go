package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/echoface/facetnav"
	"github.com/echoface/facetnav/config"
	"github.com/echoface/facetnav/dataset"
	"github.com/echoface/facetnav/index"
	"github.com/echoface/facetnav/server"
	"github.com/echoface/facetnav/util"
)

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "dataset", Usage: "YAML dataset, overrides index.dataset"},
		&cli.StringFlag{Name: "snapshot", Usage: "encoded snapshot, overrides index.snapshot"},
	}
}

func viewFlags(extra ...cli.Flag) []cli.Flag {
	return append(append(extra,
		&cli.StringFlag{Name: "initial", Usage: "docbase query, uuid list with optional {} filter"},
		&cli.StringFlag{Name: "open", Usage: "open query: free text, xpath(...) or sql(...)"},
		&cli.StringSliceFlag{Name: "drill", Usage: "drill path facet value, name=value"},
		&cli.StringSliceFlag{Name: "inherit", Usage: "inherited filter, name=value"},
		&cli.StringFlag{Name: "user", Usage: "caller user id"},
	), sourceFlags()...)
}

func cmdBuild() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "index a YAML dataset into a snapshot file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dataset", Required: true},
			&cli.StringFlag{Name: "out", Required: true},
		},
		Action: func(c *cli.Context) error {
			snap, err := buildDataset(c.String("dataset"))
			if err != nil {
				return err
			}
			f, err := os.Create(c.String("out"))
			if err != nil {
				return err
			}
			if err = index.WriteSnapshot(f, snap); err != nil {
				_ = f.Close()
				return err
			}
			if err = f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "indexed %d documents into %s\n", snap.NumDocs(), c.String("out"))
			return nil
		},
	}
}

func cmdCount() *cli.Command {
	return &cli.Command{
		Name:  "count",
		Usage: "count the values of one facet",
		Flags: viewFlags(
			&cli.StringFlag{Name: "facet", Required: true, Usage: "facet definition, e.g. ns:color or ns:date$year"},
			&cli.BoolFlag{Name: "fixed", Usage: "fixed drill path, length ignores the facet"},
		),
		Action: func(c *cli.Context) error {
			e, err := openEngine(c)
			if err != nil {
				return err
			}
			req, err := viewRequest(c, e)
			if err != nil {
				return err
			}
			def := c.String("facet")
			req.FacetCounts = facetnav.NewCountRequest(def)
			req.Hits = &facetnav.HitsRequested{FixedDrillPath: c.Bool("fixed")}
			res, err := e.View(c.Context, &facetnav.Context{UserID: c.String("user")}, req)
			if err != nil {
				return err
			}
			counts := req.FacetCounts[def]
			out := server.ViewResponse{Length: res.Length()}
			for _, value := range facetnav.SortedCounts(counts) {
				out.Counts = append(out.Counts, server.FacetCount{Value: value, Count: counts[value].Value()})
			}
			return printJSON(c, out)
		},
	}
}

func cmdSearch() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "list a sorted page of document ids",
		Flags: viewFlags(
			&cli.IntFlag{Name: "offset"},
			&cli.IntFlag{Name: "limit"},
			&cli.StringSliceFlag{Name: "order", Usage: "sort property, property:desc for descending, jcr:score for relevance"},
		),
		Action: func(c *cli.Context) error {
			e, err := openEngine(c)
			if err != nil {
				return err
			}
			req, err := viewRequest(c, e)
			if err != nil {
				return err
			}
			req.Hits = &facetnav.HitsRequested{
				ResultRequested: true,
				Offset:          c.Int("offset"),
				Limit:           c.Int("limit"),
				OrderBy:         parseOrder(c.StringSlice("order")),
			}
			res, err := e.View(c.Context, &facetnav.Context{UserID: c.String("user")}, req)
			if err != nil {
				return err
			}
			return printJSON(c, server.ViewResponse{Length: res.Length(), IDs: res.IDs()})
		},
	}
}

func cmdServe() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the engine over HTTP",
		Flags: append(sourceFlags(),
			&cli.StringFlag{Name: "addr", Usage: "listen address, overrides server.addr"},
		),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if addr := c.String("addr"); len(addr) > 0 {
				cfg.Server.Addr = addr
			}
			snap, err := loadSnapshot(cfg)
			if err != nil {
				return err
			}
			ix := index.NewIndex(snap)
			defer ix.Close()

			reg := prometheus.NewRegistry()
			opts := cfg.EngineOptions()
			var gatherer prometheus.Gatherer
			if cfg.Server.Metrics {
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				opts = append(opts, facetnav.WithMetrics(facetnav.NewMetrics(reg)))
				gatherer = reg
			}
			srv := server.New(server.Options{
				Engine:       facetnav.New(ix, opts...),
				Index:        ix,
				Reload:       func() (*index.Snapshot, error) { return loadSnapshot(cfg) },
				Gatherer:     gatherer,
				MaxBodyBytes: cfg.Server.MaxBodyBytes,
			})

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, cfg.Server)
		},
	}
}

// loadConfig configuration file with command line source overrides
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if v := c.String("dataset"); len(v) > 0 {
		cfg.Index.Dataset, cfg.Index.Snapshot = v, ""
	}
	if v := c.String("snapshot"); len(v) > 0 {
		cfg.Index.Snapshot = v
	}
	util.LogLevel = cfg.LogLevel()
	return cfg, nil
}

func loadSnapshot(cfg *config.Config) (*index.Snapshot, error) {
	switch {
	case len(cfg.Index.Snapshot) > 0:
		f, err := os.Open(cfg.Index.Snapshot)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return index.ReadSnapshot(f)
	case len(cfg.Index.Dataset) > 0:
		return buildDataset(cfg.Index.Dataset)
	}
	return nil, fmt.Errorf("no index source, set index.snapshot or index.dataset")
}

func buildDataset(path string) (*index.Snapshot, error) {
	ds, err := dataset.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return ds.Build(nil)
}

func openEngine(c *cli.Context) (*facetnav.Engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	snap, err := loadSnapshot(cfg)
	if err != nil {
		return nil, err
	}
	return facetnav.New(index.NewIndex(snap), cfg.EngineOptions()...), nil
}

func viewRequest(c *cli.Context, e *facetnav.Engine) (*facetnav.ViewRequest, error) {
	req := &facetnav.ViewRequest{}
	var err error
	if s := c.String("initial"); len(s) > 0 {
		if req.Initial, err = e.Parse(s); err != nil {
			return nil, err
		}
	}
	if s := c.String("open"); len(s) > 0 {
		if req.Open, err = e.Parse(s); err != nil {
			return nil, err
		}
	}
	for _, kv := range c.StringSlice("drill") {
		name, value, err := splitPair(kv)
		if err != nil {
			return nil, err
		}
		req.Facets = append(req.Facets, facetnav.FacetValue{Name: name, Value: value})
	}
	for _, kv := range c.StringSlice("inherit") {
		name, value, err := splitPair(kv)
		if err != nil {
			return nil, err
		}
		if req.InheritedFilters == nil {
			req.InheritedFilters = map[string][]string{}
		}
		req.InheritedFilters[name] = append(req.InheritedFilters[name], value)
	}
	return req, nil
}

// splitPair "ns:color=red"; the name holds a ':' so '=' separates
func splitPair(kv string) (string, string, error) {
	name, value, ok := strings.Cut(kv, "=")
	if !ok || len(strings.TrimSpace(name)) == 0 {
		return "", "", fmt.Errorf("expect name=value, got:%q", kv)
	}
	return strings.TrimSpace(name), value, nil
}

func parseOrder(specs []string) []facetnav.OrderBy {
	var orders []facetnav.OrderBy
	for _, spec := range specs {
		ob := facetnav.OrderBy{Property: spec}
		if i := strings.LastIndex(spec, ":"); i > 0 {
			switch strings.ToLower(spec[i+1:]) {
			case "desc", "descending":
				ob = facetnav.OrderBy{Property: spec[:i], Descending: true}
			case "asc", "ascending":
				ob = facetnav.OrderBy{Property: spec[:i]}
			}
		}
		orders = append(orders, ob)
	}
	return orders
}

func printJSON(c *cli.Context, v interface{}) error {
	_, err := fmt.Fprintln(c.App.Writer, util.JSONPretty(v))
	return err
}
