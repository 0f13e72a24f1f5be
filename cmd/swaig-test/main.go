// Command swaig-test renders an agent's SWML or invokes one of its tools
// in-process, without the platform or a running server:
//
//	go run ./cmd/swaig-test -agent call-agent -dump-swml -query 'call_id=c1&name=Ann&reason=billing'
//	go run ./cmd/swaig-test -agent hold-agent -exec place_call_on_hold -args '{"caller_name":"Ann","reason":"billing"}' -format yaml
//
// Handoff tracking uses in-memory stores, so no Redis or Postgres is needed.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"call-screening/internal/agent"
	"call-screening/internal/audit"
	"call-screening/internal/auth"
	"call-screening/internal/config"
	"call-screening/internal/handoff"
	"call-screening/internal/screening"
	"call-screening/internal/swaig"
	"call-screening/internal/urls"
	"call-screening/pkg/logger"

	"gopkg.in/yaml.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err := run(cfg, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "swaig-test:", err)
		os.Exit(1)
	}
}

type options struct {
	agent      string
	dumpSWML   bool
	format     string
	query      string
	exec       string
	args       string
	callID     string
	globalData string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("swaig-test", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.agent, "agent", "hold-agent", "agent route: hold-agent or call-agent")
	fs.BoolVar(&o.dumpSWML, "dump-swml", false, "print the SWML document the agent serves")
	fs.StringVar(&o.format, "format", "json", "output format: json or yaml")
	fs.StringVar(&o.query, "query", "", "query string for the SWML request (call_id=..&name=..&reason=..)")
	fs.StringVar(&o.exec, "exec", "", "tool to invoke")
	fs.StringVar(&o.args, "args", "{}", "tool arguments as a JSON object")
	fs.StringVar(&o.callID, "call-id", "", "call_id sent with the invocation")
	fs.StringVar(&o.globalData, "global-data", "", "global_data sent with the invocation, as a JSON object")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if o.format != "json" && o.format != "yaml" {
		return o, fmt.Errorf("unknown format %q", o.format)
	}
	if o.dumpSWML == (o.exec != "") {
		return o, errors.New("exactly one of -dump-swml or -exec is required")
	}
	return o, nil
}

func run(cfg config.Config, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	log := logger.NewWithWriter(stderr, cfg.App.Env)
	a, err := buildAgent(cfg, o.agent, log)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenManager(cfg.Tokens)
	if err != nil {
		return err
	}

	target := a.Route()
	if o.query != "" {
		target += "?" + strings.TrimPrefix(o.query, "?")
	}
	r, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	ctx := agent.WithRequest(context.Background(), r)

	var out any
	if o.dumpSWML {
		doc, err := a.Render(ctx, r, resolverFor(cfg), tokens, time.Now())
		if err != nil {
			return err
		}
		out = doc
	} else {
		req, err := invocation(o)
		if err != nil {
			return err
		}
		res, err := a.Dispatch(ctx, req)
		if err != nil {
			return err
		}
		out = res
	}
	return write(stdout, o.format, out)
}

func buildAgent(cfg config.Config, name string, log *slog.Logger) (*agent.Agent, error) {
	handoffs := handoff.NewService(handoff.NewMemoryStore(), audit.NewService(audit.NewMemoryRepo()), log)
	opts := screening.Options{
		ToNumber:    cfg.Screening.ToNumber,
		FromNumber:  cfg.Screening.FromNumber,
		Voice:       cfg.Screening.Voice,
		HoldTimeout: cfg.Screening.HoldTimeout,
		URLs:        resolverFor(cfg),
		Handoffs:    handoffs,
		Logger:      log,
	}

	switch agent.NormalizeRoute(name) {
	case screening.HoldAgentRoute:
		return screening.NewHoldAgent(opts)
	case screening.CallAgentRoute:
		return screening.NewCallAgent(opts)
	default:
		return nil, fmt.Errorf("unknown agent %q (want hold-agent or call-agent)", name)
	}
}

func resolverFor(cfg config.Config) urls.Resolver {
	return urls.Resolver{
		ProxyBase: cfg.SWML.ProxyURLBase,
		Fallback:  cfg.LocalBaseURL(),
		User:      cfg.SWML.BasicAuthUser,
		Password:  cfg.SWML.BasicAuthPassword,
	}
}

func invocation(o options) (swaig.Request, error) {
	req := swaig.Request{Function: o.exec, CallID: o.callID}

	var args map[string]any
	if err := json.Unmarshal([]byte(o.args), &args); err != nil {
		return req, fmt.Errorf("-args: %w", err)
	}
	req.Argument = swaig.Argument{Parsed: []map[string]any{args}, Raw: o.args}

	if o.globalData != "" {
		if err := json.Unmarshal([]byte(o.globalData), &req.GlobalData); err != nil {
			return req, fmt.Errorf("-global-data: %w", err)
		}
	}
	return req, nil
}

// write prints v as indented JSON or as YAML. YAML goes through a JSON round
// trip so field names match the wire format.
func write(w io.Writer, format string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if format == "json" {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
