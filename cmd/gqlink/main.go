package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/hanpama/gqlink/internal/client"
	"github.com/hanpama/gqlink/internal/config"
	"github.com/hanpama/gqlink/internal/link"
	"github.com/hanpama/gqlink/internal/logging"
	"github.com/hanpama/gqlink/internal/navigation"
	"github.com/hanpama/gqlink/internal/otel"
	"github.com/hanpama/gqlink/internal/tables"
	"github.com/hanpama/gqlink/internal/tokenstore"
)

const rootUsage = `gqlink — GraphQL client pipeline

USAGE:
  gqlink <command> [flags]

COMMANDS:
  exec             Run a query or mutation against the endpoint
  token            Manage the stored bearer token (set, clear, show)
  tables           List backing-store table names
  help             Show help for any command
`

const commonFlags = `  -endpoint <url>            GraphQL endpoint (env GRAPHQL_URL)
  -token.db <file>           SQLite file holding the token (env GQLINK_TOKEN_DB)
  -token.key <name>          Storage key of the token (default: jwt)
  -location <path>           Current application path (default: /)
  -log.level <level>         debug, info, warn, error (default: warn)
  -timeout <duration>        Per-operation timeout (default: 30s, env GQLINK_TIMEOUT)
  -otel.endpoint <addr>      OTLP collector endpoint (env OTEL_EXPORTER_OTLP_ENDPOINT)
  -otel.service <name>       OpenTelemetry service name (default: gqlink)
`

const execUsage = `exec FLAGS:
  -query <document>          GraphQL document
  -query-file <file>         Read the document from a file ("-" for stdin)
  -operation <name>          Operation to run in a multi-operation document
  -variables <json>          Variables as a JSON object
  -file <path>=<local file>  Attach a file at a variable path. Repeatable
  -fetch <policy>            no-cache, network-only or cache-first
` + commonFlags

const tokenUsage = `token SUBCOMMANDS:
  set [token]                Store a token (prompted, or read from stdin, when omitted)
  clear                      Remove the stored token
  show                       Print the stored token's claims
token FLAGS:
` + commonFlags

type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	lookup func(string) (string, bool)
}

func main() {
	e := env{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr, lookup: os.LookupEnv}
	if err := run(context.Background(), os.Args[1:], e); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, e env) error {
	if len(args) == 0 {
		fmt.Fprint(e.stderr, rootUsage)
		return fmt.Errorf("missing command")
	}
	cmd, cmdArgs := args[0], args[1:]
	switch cmd {
	case "exec":
		return cmdExec(ctx, cmdArgs, e)
	case "token":
		return cmdToken(ctx, cmdArgs, e)
	case "tables":
		for _, t := range tables.All() {
			fmt.Fprintln(e.stdout, t)
		}
		return nil
	case "help":
		return cmdHelp(cmdArgs, e)
	default:
		fmt.Fprint(e.stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, e env) error {
	if len(args) == 0 {
		fmt.Fprint(e.stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "exec":
		fmt.Fprint(e.stdout, execUsage)
	case "token":
		fmt.Fprint(e.stdout, tokenUsage)
	case "tables":
		fmt.Fprintln(e.stdout, "tables: prints one table name per line")
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdExec(ctx context.Context, args []string, e env) error {
	cfg, err := config.Load(e.lookup)
	if err != nil {
		return err
	}
	query := ""
	queryFile := ""
	operation := ""
	variables := ""
	fetch := "no-cache"
	var files stringListFlag

	fs := newFlagSet("exec")
	cfg.RegisterFlags(fs)
	fs.StringVar(&query, "query", query, "GraphQL document")
	fs.StringVar(&queryFile, "query-file", queryFile, "Read the document from a file")
	fs.StringVar(&operation, "operation", operation, "Operation name")
	fs.StringVar(&variables, "variables", variables, "Variables as JSON")
	fs.Var(&files, "file", "Attach a file: path=local")
	fs.StringVar(&fetch, "fetch", fetch, "Fetch policy")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(e.stderr, execUsage)
		return err
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprint(e.stderr, execUsage)
		return err
	}

	if queryFile != "" {
		b, err := readSource(queryFile, e.stdin)
		if err != nil {
			return fmt.Errorf("read query: %w", err)
		}
		query = string(b)
	}
	if strings.TrimSpace(query) == "" {
		fmt.Fprint(e.stderr, execUsage)
		return fmt.Errorf("-query or -query-file is required")
	}
	vars := map[string]any{}
	if variables != "" {
		if err := json.Unmarshal([]byte(variables), &vars); err != nil {
			return fmt.Errorf("invalid -variables JSON: %w", err)
		}
	}
	policy, err := parseFetchPolicy(fetch)
	if err != nil {
		return err
	}
	uploads, closeUploads, err := openUploads(files)
	if err != nil {
		return err
	}
	defer closeUploads()

	logger, err := logging.NewText(e.stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	tokens, err := openTokens(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer tokens.Close()

	nav := navigation.NewMemory(cfg.Location)
	c, err := client.New(cfg.Endpoint, tokens, nav, client.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("client init: %w", err)
	}
	shutdown, err := otel.Setup(c.Bus(), cfg.OTelEndpoint, cfg.OTelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()
	unsubscribe := c.OnBusyChange(func(busy bool) {
		logger.Debug(ctx, "network status", "busy", busy)
	})
	defer unsubscribe()

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	res, execErr := c.Execute(ctx, client.Request{
		Query:         query,
		OperationName: operation,
		Variables:     vars,
		Uploads:       uploads,
	}, client.WithFetchPolicy(policy))

	for _, to := range nav.Redirects() {
		fmt.Fprintf(e.stderr, "redirect: %s\n", to)
	}
	if execErr != nil {
		return execErr
	}
	return writeResult(e.stdout, res)
}

func cmdToken(ctx context.Context, args []string, e env) error {
	if len(args) == 0 {
		fmt.Fprint(e.stderr, tokenUsage)
		return fmt.Errorf("missing token subcommand")
	}
	sub := args[0]
	cfg, err := config.Load(e.lookup)
	if err != nil {
		return err
	}
	fs := newFlagSet("token " + sub)
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprint(e.stderr, tokenUsage)
		return err
	}
	logger, err := logging.NewText(e.stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	tokens, err := openTokens(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer tokens.Close()

	switch sub {
	case "set":
		value := fs.Arg(0)
		if value == "" {
			if value, err = promptToken(e); err != nil {
				return err
			}
		}
		if value == "" {
			return fmt.Errorf("empty token")
		}
		tokens.Write(value)
		return nil
	case "clear":
		tokens.Clear()
		return nil
	case "show":
		value, ok := tokens.Read()
		if !ok {
			fmt.Fprintln(e.stdout, "no token")
			return nil
		}
		claims, err := tokenstore.Inspect(value)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "subject: %s\n", claims.Subject)
		if claims.Issuer != "" {
			fmt.Fprintf(e.stdout, "issuer: %s\n", claims.Issuer)
		}
		if !claims.ExpiresAt.IsZero() {
			state := "valid"
			if claims.Expired(time.Now()) {
				state = "expired"
			}
			fmt.Fprintf(e.stdout, "expires: %s (%s)\n", claims.ExpiresAt.Format(time.RFC3339), state)
		}
		return nil
	default:
		fmt.Fprint(e.stderr, tokenUsage)
		return fmt.Errorf("unknown token subcommand %q", sub)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer)) // silence automatic output
	return fs
}

func openTokens(ctx context.Context, cfg *config.Config, logger logging.Logger) (*tokenstore.SQLite, error) {
	if dir := filepath.Dir(cfg.TokenDB); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("token db dir: %w", err)
		}
	}
	return tokenstore.OpenSQLite(ctx, cfg.TokenDB, cfg.TokenKey, logger)
}

// promptToken reads the token without echo from a terminal, or the first
// line of piped input.
func promptToken(e env) (string, error) {
	if f, ok := e.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(e.stderr, "token: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(e.stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(e.stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func readSource(name string, stdin io.Reader) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}

func parseFetchPolicy(s string) (client.FetchPolicy, error) {
	switch s {
	case "no-cache":
		return client.NoCache, nil
	case "network-only":
		return client.NetworkOnly, nil
	case "cache-first":
		return client.CacheFirst, nil
	default:
		return 0, fmt.Errorf("unknown fetch policy %q", s)
	}
}

func openUploads(pairs []string) ([]link.Upload, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	uploads := make([]link.Upload, 0, len(pairs))
	for _, pair := range pairs {
		path, local, ok := strings.Cut(pair, "=")
		path, local = strings.TrimSpace(path), strings.TrimSpace(local)
		if !ok || path == "" || local == "" {
			closeAll()
			return nil, nil, fmt.Errorf("invalid -file %q, want path=local", pair)
		}
		f, err := os.Open(local)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open upload: %w", err)
		}
		opened = append(opened, f)
		uploads = append(uploads, link.Upload{
			Path:        path,
			Filename:    filepath.Base(local),
			ContentType: contentType(local),
			Body:        f,
		})
	}
	return uploads, closeAll, nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func writeResult(w io.Writer, res *link.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
