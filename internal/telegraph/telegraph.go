package telegraph

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"
)

// Purger removes records older than a cutoff. Both the state backends and
// the transcript store implement it.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Daemon is the main telegraph process. It connects to a chat platform via
// an Adapter, pumps inbound messages through the Router to the bot, and
// purges stale state on a cron schedule.
type Daemon struct {
	adapter     Adapter
	bot         Bot
	accounts    Accounts
	botName     string
	transcripts *TranscriptStore
	purgers     map[string]Purger
	purgeCron   string
	retention   time.Duration
	now         func() time.Time
	out         io.Writer
}

// DaemonOpts holds parameters for creating a new Daemon.
type DaemonOpts struct {
	Adapter     Adapter
	Bot         Bot
	Accounts    Accounts         // optional; enables "!bot" commands
	BotName     string           // shown in command help
	Transcripts *TranscriptStore // optional; also purged with the rest
	Purgers     map[string]Purger
	PurgeCron   string        // 5-field cron; empty disables purging
	Retention   time.Duration // records older than this are purged
	Now         func() time.Time
	Out         io.Writer // defaults to os.Stdout
}

// NewDaemon creates a Daemon with the given options.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("telegraph: adapter is required")
	}
	if opts.Bot == nil {
		return nil, fmt.Errorf("telegraph: bot is required")
	}
	if opts.PurgeCron != "" {
		if err := validateCron(opts.PurgeCron); err != nil {
			return nil, err
		}
		if opts.Retention <= 0 {
			return nil, fmt.Errorf("telegraph: retention must be positive when purge_cron is set")
		}
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	purgers := make(map[string]Purger, len(opts.Purgers)+1)
	for name, p := range opts.Purgers {
		purgers[name] = p
	}
	if opts.Transcripts != nil {
		purgers["transcripts"] = opts.Transcripts
	}
	return &Daemon{
		adapter:     opts.Adapter,
		bot:         opts.Bot,
		accounts:    opts.Accounts,
		botName:     opts.BotName,
		transcripts: opts.Transcripts,
		purgers:     purgers,
		purgeCron:   opts.PurgeCron,
		retention:   opts.Retention,
		now:         now,
		out:         out,
	}, nil
}

// Run starts the telegraph daemon. It connects the adapter, builds the
// Router, starts the purge scheduler and blocks until the context is
// cancelled. On shutdown it lets in-flight turns finish and closes the
// adapter gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "Telegraph connecting...\n")
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("telegraph: connect: %w", err)
	}

	// Extract bot user ID if the adapter supports it.
	var botUserID string
	if bui, ok := d.adapter.(BotUserIDer); ok {
		botUserID = bui.BotUserID()
	}

	var cmdHandler *CommandHandler
	if d.accounts != nil {
		var err error
		cmdHandler, err = NewCommandHandler(CommandHandlerOpts{
			Accounts: d.accounts,
			BotName:  d.botName,
		})
		if err != nil {
			d.adapter.Close()
			return fmt.Errorf("telegraph: build command handler: %w", err)
		}
	}

	router, err := NewRouter(RouterOpts{
		Bot:         d.bot,
		CmdHandler:  cmdHandler,
		Adapter:     d.adapter,
		Transcripts: d.transcripts,
		BotUserID:   botUserID,
		Out:         d.out,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("telegraph: build router: %w", err)
	}

	// Start listening for inbound messages.
	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("telegraph: listen: %w", err)
	}

	go d.runPurgeScheduler(ctx)

	fmt.Fprintf(d.out, "Telegraph online\n")

	// Main event loop: pump inbound messages until context is cancelled.
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "Telegraph shutting down...\n")
			router.Wait()
			if err := d.adapter.Close(); err != nil {
				log.Printf("telegraph: close adapter: %v", err)
			}
			fmt.Fprintf(d.out, "Telegraph stopped\n")
			return nil

		case msg, ok := <-inbound:
			if !ok {
				// Adapter closed the channel.
				fmt.Fprintf(d.out, "Telegraph inbound channel closed\n")
				router.Wait()
				return nil
			}
			router.Handle(ctx, msg)
		}
	}
}

// runPurgeScheduler fires Purge on the configured cron schedule. It returns
// immediately if purging is disabled.
func (d *Daemon) runPurgeScheduler(ctx context.Context) {
	if d.purgeCron == "" || len(d.purgers) == 0 {
		return
	}
	next := nextCronDuration(d.purgeCron)
	if next <= 0 {
		return
	}
	timer := time.NewTimer(next)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			d.Purge(ctx)
			if next := nextCronDuration(d.purgeCron); next > 0 {
				timer.Reset(next)
			}
		}
	}
}

// Purge deletes records older than the retention window from every
// configured purger and returns the total removed. Failures are logged and
// do not stop the remaining purgers.
func (d *Daemon) Purge(ctx context.Context) int64 {
	cutoff := d.now().Add(-d.retention)
	names := make([]string, 0, len(d.purgers))
	for name := range d.purgers {
		names = append(names, name)
	}
	sort.Strings(names)

	var total int64
	for _, name := range names {
		n, err := d.purgers[name].PurgeBefore(ctx, cutoff)
		if err != nil {
			log.Printf("telegraph: purge %s: %v", name, err)
			continue
		}
		total += n
		fmt.Fprintf(d.out, "telegraph: purged %d %s record(s) older than %s\n", n, name, cutoff.UTC().Format(time.RFC3339))
	}
	return total
}
