package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/kadirpekel/protolink"
	"github.com/kadirpekel/protolink/pkg/a2a"
	"github.com/kadirpekel/protolink/pkg/config"
	"github.com/kadirpekel/protolink/pkg/httpclient"
	"github.com/kadirpekel/protolink/pkg/registry"
	"github.com/kadirpekel/protolink/pkg/transport"
)

// outboundClient builds the retrying HTTP client for outbound commands,
// applying the config's retry policy and TLS settings.
func outboundClient(cfg *config.Config) (*httpclient.Client, error) {
	var tlsConfig *httpclient.TLSConfig
	if cfg.Transport.TLS.Enabled() {
		tlsConfig = &httpclient.TLSConfig{
			CACertificate:      cfg.Transport.TLS.CACert,
			InsecureSkipVerify: cfg.Transport.TLS.InsecureSkipVerify,
		}
	}
	return httpclient.NewWithTLS(tlsConfig,
		httpclient.WithMaxAttempts(cfg.Transport.RetryAttempts),
		httpclient.WithBaseDelay(cfg.Transport.RetryBaseDelay.Duration()),
		httpclient.WithMaxDelay(cfg.Transport.RetryMaxDelay.Duration()),
	)
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := protolink.GetVersion()
	if build, ok := debug.ReadBuildInfo(); ok {
		if build.Main.Version != "(devel)" && build.Main.Version != "" {
			info.Version = build.Main.Version
		}
	}
	fmt.Printf("%s (protocol %s)\n", info, a2a.ProtocolVersion)
	return nil
}

// RegistryCmd runs a registry server until interrupted.
type RegistryCmd struct {
	Listen string `help:"Listen address." default:":9000"`
	TTL    int    `help:"Heartbeat TTL in seconds." default:"60"`
	Sweep  int    `help:"Eviction sweep interval in seconds." default:"30"`
}

func (c *RegistryCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	listen := c.Listen
	if cfg.Registry.Listen != "" {
		listen = cfg.Registry.Listen
	}
	ttl := time.Duration(c.TTL) * time.Second
	sweep := time.Duration(c.Sweep) * time.Second

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := registry.New(registry.WithTTL(ttl), registry.WithSweepInterval(sweep))
	server := registry.NewServer(reg, listen)
	if err := server.Start(ctx); err != nil {
		return err
	}

	fmt.Printf("Registry listening on %s (ttl=%s)\n", server.Addr(), ttl)
	fmt.Println("Press Ctrl+C to stop")
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Stop(shutdownCtx)
}

// DiscoverCmd lists agents known to a registry.
type DiscoverCmd struct {
	Registry string            `help:"Registry base URL." default:"http://localhost:9000"`
	Filter   map[string]string `help:"Filter key=value pairs (e.g. capabilities.streaming=true)."`
}

func (c *DiscoverCmd) Run() error {
	client := registry.NewClient(c.Registry)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cards, err := client.Discover(ctx, c.Filter)
	if err != nil {
		return fmt.Errorf("discover failed: %w", err)
	}
	if len(cards) == 0 {
		fmt.Println("No agents registered")
		return nil
	}

	for _, card := range cards {
		caps := make([]string, 0, len(card.Capabilities))
		for name, enabled := range card.Capabilities {
			if enabled {
				caps = append(caps, name)
			}
		}
		fmt.Printf("%-20s %-30s [%s]\n", card.Name, card.URL, strings.Join(caps, ", "))
	}
	return nil
}

// CardCmd fetches and prints an agent's card.
type CardCmd struct {
	URL string `arg:"" help:"Agent base URL."`
}

func (c *CardCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	httpClient, err := outboundClient(cfg)
	if err != nil {
		return err
	}
	client := transport.NewHTTPTransport(transport.WithHTTPClient(httpClient))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	card, err := client.GetAgentCard(ctx, c.URL)
	if err != nil {
		return fmt.Errorf("fetch card failed: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(card)
}

// SendCmd sends a single message to an agent and prints the reply.
type SendCmd struct {
	URL   string `arg:"" help:"Agent base URL."`
	Text  string `arg:"" help:"Message text."`
	Token string `help:"Bearer token for authenticated agents."`
	Skill string `help:"Skill hint for authorization."`
}

func (c *SendCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	httpClient, err := outboundClient(cfg)
	if err != nil {
		return err
	}
	opts := []transport.HTTPOption{
		transport.WithHTTPClient(httpClient),
	}
	if c.Token != "" {
		opts = append(opts, transport.WithStaticToken(c.Token))
	}
	client := transport.NewHTTPTransport(opts...)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Transport.Timeout.Duration())
	defer cancel()

	task := a2a.NewTask(a2a.NewUserMessage(c.Text))
	result, err := client.SendTask(ctx, c.URL, task, c.Skill)
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	if last, ok := result.LastMessage(); ok {
		fmt.Println(a2a.ExtractText(last))
	}
	return nil
}
