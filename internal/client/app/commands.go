package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tgdash/internal/controller"
	"tgdash/internal/report"
	"tgdash/internal/stats"
	"tgdash/internal/store"
	"tgdash/internal/validate"
	"tgdash/pkg/model"
)

func statsCommand(r *runtime) *cobra.Command {
	var test string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the aggregated statistics of a test",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := r.client()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := c.Statistics(ctx)
			if err != nil {
				return r.fail("statistics", err)
			}
			tests, err := c.TrafficGen(ctx)
			if err != nil {
				return r.fail("traffic generator", err)
			}
			ts, ok := s.ForTest(test)
			if !ok {
				return fmt.Errorf("no statistics for test %s", test)
			}
			def := tests[test]
			sum := stats.Summarize(ts, def.PortTxRxMapping, &def)
			if asJSON {
				enc := json.NewEncoder(r.out)
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}
			if def.Name != "" {
				fmt.Fprintf(r.out, "Test %s: %s\n", test, def.Name)
			}
			report.TextTable(r.out, sum)
			return nil
		},
	}
	cmd.Flags().StringVarP(&test, "test", "t", "1", "test number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func portsCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List the controller's ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := r.client()
			if err != nil {
				return err
			}
			ports, err := c.Ports(cmd.Context())
			if err != nil {
				return r.fail("ports", err)
			}
			report.PortTable(r.out, ports)
			return nil
		},
	}
}

// loadTests reads a definition file, or the definitions stored by the dashboard.
func (r *runtime) loadTests(ctx context.Context, path string) (model.TestList, error) {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return validate.ImportFile(raw)
	}
	st, err := r.store()
	if err != nil {
		return nil, err
	}
	defer st.Close()
	tests, err := store.LoadTrafficGen(ctx, st)
	if err != nil {
		return nil, err
	}
	var errs []error
	for _, n := range tests.Numbers() {
		def := tests[n]
		if err := validate.TrafficGen(&def); err != nil {
			errs = append(errs, fmt.Errorf("test %s: %w", n, err))
		}
	}
	return tests, errors.Join(errs...)
}

func startCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "start [definition.json]",
		Short: "Validate and start traffic generation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			ctx := cmd.Context()
			tests, err := r.loadTests(ctx, path)
			if err != nil {
				return err
			}
			numbers := tests.Numbers()
			if len(numbers) == 0 {
				return errors.New("no traffic generator definition configured")
			}
			c, err := r.client()
			if err != nil {
				return err
			}
			if len(numbers) == 1 {
				err = c.StartTrafficGen(ctx, tests[numbers[0]])
			} else {
				multi := model.MultipleTrafficGen{}
				for _, n := range numbers {
					multi.Tests = append(multi.Tests, tests[n])
				}
				err = c.StartMultipleTrafficGen(ctx, multi)
			}
			if err != nil {
				return r.fail("start", err)
			}
			fmt.Fprintf(r.out, "started %d test(s)\n", len(numbers))
			return nil
		},
	}
}

func stopCommand(r *runtime) *cobra.Command {
	return simpleCommand(r, "stop", "Stop traffic generation", func(ctx context.Context, c *controller.Client) error {
		return c.StopTrafficGen(ctx)
	})
}

func simpleCommand(r *runtime, use, short string, do func(context.Context, *controller.Client) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := r.client()
			if err != nil {
				return err
			}
			if err := do(cmd.Context(), c); err != nil {
				return r.fail(use, err)
			}
			fmt.Fprintln(r.out, "ok")
			return nil
		},
	}
}

func onlineCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "online",
		Short: "Check whether the controller is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := r.client()
			if err != nil {
				return err
			}
			st, err := c.Online(cmd.Context())
			if err != nil {
				return r.fail("online", err)
			}
			fmt.Fprintf(r.out, "%s (version %s)\n", st.Status, st.Version)
			return nil
		},
	}
}

func tablesCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Dump the data plane tables as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := r.client()
			if err != nil {
				return err
			}
			tables, err := c.Tables(cmd.Context())
			if err != nil {
				return r.fail("tables", err)
			}
			enc := json.NewEncoder(r.out)
			enc.SetIndent("", "  ")
			return enc.Encode(tables)
		},
	}
}

func exportCommand(r *runtime) *cobra.Command {
	var out string
	var limit int
	cmd := &cobra.Command{
		Use:       "export csv|pdf",
		Short:     "Export a report of every test",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"csv", "pdf"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			if kind != "csv" && kind != "pdf" {
				return fmt.Errorf("unknown report type %q", kind)
			}
			c, err := r.client()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if limit == 0 {
				limit = r.cfg.Poll.TimeLimit
			}
			d := report.Dataset{}
			if d.Stats, err = c.Statistics(ctx); err != nil {
				return r.fail("statistics", err)
			}
			if d.TimeStats, err = c.TimeStatistics(ctx, limit); err != nil {
				return r.fail("time statistics", err)
			}
			if d.Tests, err = c.TrafficGen(ctx); err != nil {
				return r.fail("traffic generator", err)
			}

			var buf bytes.Buffer
			name := report.PDFFileName
			if kind == "csv" {
				name = report.CSVFileName
				n, err := report.NewCSVBuilder(r.log).Build(&buf, d)
				if err != nil {
					return err
				}
				if n == 0 {
					return errors.New("no statistics to export")
				}
			} else if err := report.NewPDFBuilder(r.log).Build(&buf, d); err != nil {
				return err
			}
			if out == "" {
				out = name
			}
			return r.write(out, buf.Bytes())
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file, - for stdout")
	cmd.Flags().IntVar(&limit, "limit", 0, "seconds of time series to include (default from configuration)")
	return cmd
}

func (r *runtime) write(path string, data []byte) error {
	if path == "-" {
		_, err := r.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	r.log.Info("report written", zap.String("path", path), zap.Int("bytes", len(data)))
	fmt.Fprintf(r.out, "wrote %s\n", path)
	return nil
}

func profileCommand(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Run RFC2544 and IMIX profiles",
	}

	var kind, file string
	var tests []string
	start := &cobra.Command{
		Use:   "start",
		Short: "Start a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := profileRequest(kind, tests)
			if err != nil {
				return err
			}
			if file != "" {
				raw, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				list, err := validate.ImportFile(raw)
				if err != nil {
					return err
				}
				def := list[list.Numbers()[0]]
				req.TrafficGen = &def
			}
			c, err := r.client()
			if err != nil {
				return err
			}
			if err := c.StartProfile(cmd.Context(), req); err != nil {
				return r.fail("start profile", err)
			}
			fmt.Fprintf(r.out, "%s profile started\n", req.Kind)
			return nil
		},
	}
	start.Flags().StringVar(&kind, "kind", "rfc2544", "rfc2544 or imix")
	start.Flags().StringSliceVar(&tests, "tests", nil, "RFC2544 tests: throughput, latency, frame_loss_rate, back_to_back (default all)")
	start.Flags().StringVarP(&file, "file", "f", "", "base traffic generator definition")

	stop := simpleCommand(r, "stop", "Stop the running profile", func(ctx context.Context, c *controller.Client) error {
		return c.StopProfile(ctx)
	})

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the profile state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := r.client()
			if err != nil {
				return err
			}
			st, err := c.Profiles(cmd.Context())
			if err != nil {
				return r.fail("profile", err)
			}
			state := "idle"
			if st.Running {
				state = "running " + st.CurrentTest
			}
			fmt.Fprintf(r.out, "%s: %s\n", st.Kind, state)
			return nil
		},
	}

	var out string
	rep := &cobra.Command{
		Use:   "report",
		Short: "Export the profile results as PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := r.client()
			if err != nil {
				return err
			}
			st, err := c.Profiles(cmd.Context())
			if err != nil {
				return r.fail("profile", err)
			}
			var buf bytes.Buffer
			if err := report.NewPDFBuilder(r.log).Profile(&buf, *st); err != nil {
				return err
			}
			if out == "" {
				out = report.ProfilePDFFileName
			}
			return r.write(out, buf.Bytes())
		},
	}
	rep.Flags().StringVarP(&out, "output", "o", "", "output file, - for stdout")

	cmd.AddCommand(start, stop, status, rep)
	return cmd
}

func profileRequest(kind string, tests []string) (model.ProfileRequest, error) {
	var req model.ProfileRequest
	switch strings.ToLower(kind) {
	case "rfc2544":
		req.Kind = model.ProfileRFC2544
	case "imix":
		req.Kind = model.ProfileIMIX
		if len(tests) > 0 {
			return req, errors.New("--tests only applies to rfc2544")
		}
		return req, nil
	default:
		return req, fmt.Errorf("unknown profile %q", kind)
	}
	if len(tests) == 0 {
		req.Tests = append(req.Tests, model.AllRFCTests...)
		return req, nil
	}
	for _, t := range tests {
		rt, err := model.ParseRFCTest(t)
		if err != nil {
			return req, err
		}
		req.Tests = append(req.Tests, rt)
	}
	return req, nil
}

func configCommand(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write the dashboard's stored configuration",
	}
	withStore := func(do func(ctx context.Context, st store.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			st, err := r.store()
			if err != nil {
				return err
			}
			defer st.Close()
			return do(cmd.Context(), st, args)
		}
	}

	get := &cobra.Command{
		Use:   "get [key]",
		Short: "Print one key, or list the stored keys",
		Args:  cobra.MaximumNArgs(1),
		RunE: withStore(func(ctx context.Context, st store.Store, args []string) error {
			if len(args) == 0 {
				keys, err := st.Keys(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(r.out, strings.Join(keys, "\n"))
				return nil
			}
			v, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(r.out, string(v))
			return nil
		}),
	}

	set := &cobra.Command{
		Use:   "set key value|@file",
		Short: "Store a JSON value",
		Args:  cobra.ExactArgs(2),
		RunE: withStore(func(ctx context.Context, st store.Store, args []string) error {
			key, value := args[0], []byte(args[1])
			if name, ok := strings.CutPrefix(args[1], "@"); ok {
				raw, err := os.ReadFile(name)
				if err != nil {
					return err
				}
				value = raw
			}
			if key == store.KeyTrafficGen {
				tests, err := validate.ImportFile(value)
				if err != nil {
					return err
				}
				return store.SaveTrafficGen(ctx, st, tests)
			}
			return st.Put(ctx, key, value)
		}),
	}

	imp := &cobra.Command{
		Use:   "import file",
		Short: "Replace the stored definitions with an exported file",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(ctx context.Context, st store.Store, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			tests, err := store.Import(ctx, st, raw)
			if err != nil {
				return err
			}
			fmt.Fprintf(r.out, "imported %d test(s)\n", len(tests))
			return nil
		}),
	}

	cmd.AddCommand(get, set, imp)
	return cmd
}
