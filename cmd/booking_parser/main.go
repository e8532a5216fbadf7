// Command-line entry point for the booking confirmation parser.
//
// Input formats
// -------------
// A converted booking confirmation is a list of text lines. The CLI accepts:
//  1. JSONL, one document per line: {"id":"...","filename":"...","lines":[...]}
//     or the queue envelope {"job_id":"...","document":{...}}.
//  2. Plain text files (.txt), one document per file.
//  3. PDF files (.pdf), converted row by row.
//
// With no file arguments, JSONL is read from stdin.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"booking_parser/internal/config"
	"booking_parser/internal/document"
	"booking_parser/internal/extractor"
	"booking_parser/internal/gazetteer"
	"booking_parser/internal/order"
	"booking_parser/internal/pipeline"
	"booking_parser/internal/quality"
	"booking_parser/internal/registry"
	"booking_parser/internal/storage"
	_ "booking_parser/internal/templates" // register all templates via init()
)

// ExtractOut is one entry of the extract output.
type ExtractOut struct {
	DocumentID string          `json:"document_id"`
	Filename   string          `json:"filename,omitempty"`
	Template   string          `json:"template,omitempty"`
	Payload    *order.Payload  `json:"payload,omitempty"`
	Quality    *quality.Report `json:"quality,omitempty"`
	Error      string          `json:"error,omitempty"`
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "booking_parser - commands:")
	fmt.Fprintln(w, "  extract   - extract order payloads from booking confirmations")
	fmt.Fprintln(w, "  classify  - show which template handles each document")
	fmt.Fprintln(w, "  stats     - summarise orders stored in a SQLite database")
	fmt.Fprintln(w, "  places    - list cities learned by the gazetteer")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  booking_parser extract [-output out.json] [-pretty] [-payload] [-stats] [-db orders.db] [-gazetteer places.db] [-workers N] [-tz Europe/London] [files...]")
	fmt.Fprintln(w, "  booking_parser classify [-trace] [files...]")
	fmt.Fprintln(w, "  booking_parser stats -db orders.db")
	fmt.Fprintln(w, "  booking_parser places -gazetteer places.db [-limit N]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - Files ending in .pdf are converted, .txt files are one document each,")
	fmt.Fprintln(w, "    anything else is read as JSONL. No files means JSONL on stdin.")
	fmt.Fprintln(w, "  - -config loads a YAML file; flags override it.")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "extract":
		runExtract(os.Args[2:])
	case "classify":
		runClassify(os.Args[2:])
	case "stats":
		runStats(os.Args[2:])
	case "places":
		runPlaces(os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

// common holds the flags every subcommand shares.
type common struct {
	configPath *string
	tz         *string
	logLevel   *string
	gazetteer  *string
}

func commonFlags(fs *flag.FlagSet) *common {
	return &common{
		configPath: fs.String("config", config.EnvOrDefault("BOOKING_CONFIG", ""), "YAML configuration file"),
		tz:         fs.String("tz", "", "Timezone for stop timestamps (default: config or UTC)"),
		logLevel:   fs.String("log-level", "", "Log level: debug, info, warn, error"),
		gazetteer:  fs.String("gazetteer", "", "SQLite file for learned city names (default: config)"),
	}
}

// load reads the configuration and applies flag overrides.
func (c *common) load() *config.Config {
	cfg, err := config.Load(*c.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *c.tz != "" {
		cfg.Timezone = *c.tz
	}
	if *c.logLevel != "" {
		cfg.LogLevel = *c.logLevel
	}
	if *c.gazetteer != "" {
		cfg.GazetteerPath = *c.gazetteer
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// setup configures the default registry. The returned store is nil when
// no gazetteer file is configured.
func setup(cfg *config.Config, logger *slog.Logger) (*registry.Registry, *gazetteer.Store) {
	loc, _ := cfg.Location() // validated in load

	opts := []extractor.Option{extractor.WithLogger(logger), extractor.WithLocation(loc)}

	var places *gazetteer.Store
	if cfg.GazetteerPath != "" {
		var err error
		places, err = gazetteer.OpenStore(cfg.GazetteerPath, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open gazetteer: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, extractor.WithCountries(places))
	}

	reg := registry.Default()
	reg.Sort()
	reg.Configure(opts...)
	return reg, places
}

func runExtract(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	cf := commonFlags(fs)
	outPath := fs.String("output", "", "Output JSON file (default: stdout)")
	pretty := fs.Bool("pretty", false, "Pretty-print JSON output")
	payloadOnly := fs.Bool("payload", false, "Emit only the order payloads")
	showStats := fs.Bool("stats", false, "Print extraction quality counters to stderr")
	dbPath := fs.String("db", "", "SQLite database to store orders in")
	workers := fs.Int("workers", runtime.NumCPU(), "Documents extracted in parallel")
	_ = fs.Parse(args)

	cfg := cf.load()
	logger := cfg.Logger()
	reg, places := setup(cfg, logger)

	docs, err := loadAll(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		os.Exit(1)
	}

	proc := &pipeline.Processor{Registry: reg, Logger: logger}
	if places != nil {
		defer places.Close()
		proc.Places = places
	}
	if *dbPath != "" {
		db, err := storage.OpenSQLite(*dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		proc.Store = db
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := extractAll(ctx, proc, docs, *workers)

	var v any = out
	if *payloadOnly {
		payloads := make([]*order.Payload, 0, len(out))
		for _, o := range out {
			if o.Payload != nil {
				payloads = append(payloads, o.Payload)
			}
		}
		v = payloads
	}
	writeOutput(v, *outPath, *pretty)

	if *showStats {
		printStats(os.Stderr, out)
	}
}

// extractAll runs docs through proc on up to workers goroutines. Output
// order matches input order.
func extractAll(ctx context.Context, proc *pipeline.Processor, docs []*document.Document, workers int) []ExtractOut {
	out := make([]ExtractOut, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, doc := range docs {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			out[i] = extractOne(ctx, proc, doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Interrupted: %v\n", err)
	}
	return out
}

func extractOne(ctx context.Context, proc *pipeline.Processor, doc *document.Document) ExtractOut {
	eo := ExtractOut{DocumentID: doc.ID, Filename: doc.Filename}

	res, err := proc.Process(ctx, doc)
	if res != nil {
		eo.DocumentID = res.DocumentID
		eo.Template = res.Template
		eo.Payload = &res.Payload
		eo.Quality = res.Quality
	}
	if err != nil {
		eo.Error = err.Error()
	}
	return eo
}

func printStats(w io.Writer, out []ExtractOut) {
	st := quality.NewStats()
	failed := 0
	for _, o := range out {
		if o.Quality == nil {
			failed++
			continue
		}
		st.Add(o.Quality)
	}

	fmt.Fprintf(w, "stats: documents=%d extracted=%d failed=%d needs_review=%d mean_confidence=%.3f\n",
		len(out), st.Documents, failed, st.NeedsReview, st.MeanConfidence())
	for _, name := range st.Templates() {
		fmt.Fprintf(w, "  template %-16s %d\n", name, st.ByTemplate[name])
	}
	for field, n := range st.Defaulted {
		fmt.Fprintf(w, "  defaulted %-15s %d\n", field, n)
	}
}

func runClassify(args []string) {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	cf := commonFlags(fs)
	trace := fs.Bool("trace", false, "Print every template's marker trace as JSON")
	_ = fs.Parse(args)

	cfg := cf.load()
	reg, places := setup(cfg, cfg.Logger())
	if places != nil {
		defer places.Close()
	}

	docs, err := loadAll(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		os.Exit(1)
	}

	for _, doc := range docs {
		name := "-"
		if t, ok := reg.Classify(doc.Lines); ok {
			name = t.Name()
		}
		label := doc.Filename
		if label == "" {
			label = doc.ID
		}
		fmt.Printf("%s\t%s\n", label, name)

		if *trace {
			enc, err := json.MarshalIndent(reg.Trace(doc.Lines), "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "JSON encode error: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(enc))
		}
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	dbPath := fs.String("db", "orders.db", "SQLite database")
	_ = fs.Parse(args)

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	st, err := db.GetStats(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read stats: %v\n", err)
		os.Exit(1)
	}
	writeOutput(st, "", true)
}

func runPlaces(args []string) {
	fs := flag.NewFlagSet("places", flag.ExitOnError)
	path := fs.String("gazetteer", "places.db", "Gazetteer SQLite file")
	limit := fs.Int("limit", 50, "Maximum entries")
	_ = fs.Parse(args)

	st, err := gazetteer.OpenStore(*path, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open gazetteer: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	places, err := st.Places(context.Background(), *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list places: %v\n", err)
		os.Exit(1)
	}
	for _, p := range places {
		fmt.Printf("%-30s %s %5d  %s\n", p.Name, p.Country, p.Observations, p.LastSeen.Format("2006-01-02"))
	}
}

// loadAll reads every input path, or JSONL from stdin when there are none.
func loadAll(paths []string) ([]*document.Document, error) {
	if len(paths) == 0 {
		return readJSONL(os.Stdin)
	}

	var docs []*document.Document
	for _, p := range paths {
		d, err := loadPath(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		docs = append(docs, d...)
	}
	return docs, nil
}

func loadPath(path string) ([]*document.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		doc, err := document.FromPDF(path)
		if err != nil {
			return nil, err
		}
		return []*document.Document{doc}, nil
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		text := strings.ReplaceAll(string(data), "\r\n", "\n")
		return []*document.Document{document.New(filepath.Base(path), strings.Split(text, "\n"))}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readJSONL(f)
}

// readJSONL decodes one document per non-blank line. Undecodable lines are
// reported and skipped.
func readJSONL(r io.Reader) ([]*document.Document, error) {
	scanner := bufio.NewScanner(r)
	// Documents can be long; bump buffer.
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 60*1024*1024)

	var docs []*document.Document
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		doc, err := document.Decode([]byte(line))
		if err != nil {
			fmt.Fprintf(os.Stderr, "line %d: skipped: %v\n", n, err)
			continue
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func writeOutput(v any, path string, pretty bool) {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	enc, err := marshalJSON(v, pretty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "JSON encode error: %v\n", err)
		os.Exit(1)
	}
	_, _ = w.Write(enc)
	if w == os.Stdout {
		_, _ = w.Write([]byte("\n"))
	}
}

func marshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
