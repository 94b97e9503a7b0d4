package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/mitchellh/cli"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/matteocacciola/cheshirecat-go-sdk/api/memory"
	"github.com/matteocacciola/cheshirecat-go-sdk/api/message"
	"github.com/matteocacciola/cheshirecat-go-sdk/api/plugins"
	"github.com/matteocacciola/cheshirecat-go-sdk/api/rabbithole"
	"github.com/matteocacciola/cheshirecat-go-sdk/client"
)

func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

type statusCommand struct {
	*base
}

func newStatusCommand(ui cli.Ui) *statusCommand {
	return &statusCommand{base: newBase(ui, "status")}
}

func (c *statusCommand) Synopsis() string { return "Show the backend status" }

func (c *statusCommand) Help() string {
	return c.help(`
Usage: catctl status [options]

  Checks that the backend is up and summarizes its memory and plugins.`)
}

func (c *statusCommand) Run(args []string) int {
	if _, ok := c.parse(args); !ok {
		return 1
	}
	cc, err := c.client()
	if err != nil {
		return c.fail(err)
	}
	defer c.report()
	ctx, cancel := interruptible()
	defer cancel()

	var (
		status      client.Status
		collections memory.CollectionsList
		available   plugins.Collection
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		status, err = cc.Status(gctx, c.scope())
		return errors.Wrap(err, "status")
	})
	g.Go(func() (err error) {
		collections, err = cc.Memory().GetCollections(gctx, c.scope())
		return errors.Wrap(err, "collections")
	})
	g.Go(func() (err error) {
		available, err = cc.Plugins().GetAvailablePlugins(gctx, "", c.scope())
		return errors.Wrap(err, "plugins")
	})
	if err := g.Wait(); err != nil {
		return c.fail(err)
	}

	c.ui.Output(fmt.Sprintf("%s (version %s)", status.Status, status.Version))
	points := 0
	for _, col := range collections.Collections {
		points += col.VectorsCount
	}
	c.ui.Output(fmt.Sprintf("collections: %d, points: %d", len(collections.Collections), points))
	active := 0
	for _, p := range available.Installed {
		if p.Active {
			active++
		}
	}
	c.ui.Output(fmt.Sprintf("plugins: %d installed, %d active", len(available.Installed), active))
	return 0
}

type collectionsCommand struct {
	*base
}

func newCollectionsCommand(ui cli.Ui) *collectionsCommand {
	return &collectionsCommand{base: newBase(ui, "collections")}
}

func (c *collectionsCommand) Synopsis() string { return "List memory collections" }

func (c *collectionsCommand) Help() string {
	return c.help(`
Usage: catctl collections [options]

  Lists the memory collections of an agent with their point counts.`)
}

func (c *collectionsCommand) Run(args []string) int {
	if _, ok := c.parse(args); !ok {
		return 1
	}
	cc, err := c.client()
	if err != nil {
		return c.fail(err)
	}
	defer c.report()
	ctx, cancel := interruptible()
	defer cancel()

	list, err := cc.Memory().GetCollections(ctx, c.scope())
	if err != nil {
		return c.fail(err)
	}
	for _, col := range list.Collections {
		c.ui.Output(fmt.Sprintf("%-12s %d", col.Name, col.VectorsCount))
	}
	return 0
}

type pluginsCommand struct {
	*base
	flagQuery string
}

func newPluginsCommand(ui cli.Ui) *pluginsCommand {
	c := &pluginsCommand{base: newBase(ui, "plugins")}
	c.flags.StringVar(&c.flagQuery, "query", "", "only list plugins matching this text")
	return c
}

func (c *pluginsCommand) Synopsis() string { return "List installed plugins" }

func (c *pluginsCommand) Help() string {
	return c.help(`
Usage: catctl plugins [options]

  Lists the installed plugins, active ones marked with a star.`)
}

func (c *pluginsCommand) Run(args []string) int {
	if _, ok := c.parse(args); !ok {
		return 1
	}
	cc, err := c.client()
	if err != nil {
		return c.fail(err)
	}
	defer c.report()
	ctx, cancel := interruptible()
	defer cancel()

	list, err := cc.Plugins().GetAvailablePlugins(ctx, c.flagQuery, c.scope())
	if err != nil {
		return c.fail(err)
	}
	for _, p := range list.Installed {
		mark := " "
		if p.Active {
			mark = "*"
		}
		c.ui.Output(fmt.Sprintf("%s %s %s", mark, p.ID, p.Version))
	}
	return 0
}

type uploadCommand struct {
	*base
	flagChunkSize    int
	flagChunkOverlap int
	flagURL          bool
}

func newUploadCommand(ui cli.Ui) *uploadCommand {
	c := &uploadCommand{base: newBase(ui, "upload")}
	c.flags.IntVar(&c.flagChunkSize, "chunk-size", 0, "size of the chunks a document is split into")
	c.flags.IntVar(&c.flagChunkOverlap, "chunk-overlap", 0, "overlap between consecutive chunks")
	c.flags.BoolVar(&c.flagURL, "url", false, "arguments are web pages, not files")
	return c
}

func (c *uploadCommand) Synopsis() string { return "Ingest documents into declarative memory" }

func (c *uploadCommand) Help() string {
	return c.help(`
Usage: catctl upload [options] <file or url>...

  Sends documents through the rabbit hole. Several files are sent in one
  request.`)
}

func (c *uploadCommand) Run(args []string) int {
	rest, ok := c.parse(args)
	if !ok {
		return 1
	}
	if len(rest) == 0 {
		c.ui.Error("at least one file or url is required")
		return cliUsage
	}
	cc, err := c.client()
	if err != nil {
		return c.fail(err)
	}
	defer c.report()
	ctx, cancel := interruptible()
	defer cancel()

	var opts rabbithole.Options
	if c.flagChunkSize > 0 {
		opts.ChunkSize = &c.flagChunkSize
	}
	if c.flagChunkOverlap > 0 {
		opts.ChunkOverlap = &c.flagChunkOverlap
	}

	if c.flagURL {
		for _, u := range rest {
			res, err := cc.RabbitHole().PostWeb(ctx, u, opts, c.scope())
			if err != nil {
				return c.fail(err)
			}
			c.ui.Output(fmt.Sprintf("%s: %s", res.URL, res.Info))
		}
		return 0
	}

	files := make([]rabbithole.File, 0, len(rest))
	for _, name := range rest {
		f, err := os.Open(name)
		if err != nil {
			return c.fail(err)
		}
		defer f.Close()
		files = append(files, rabbithole.File{
			Name:        filepath.Base(name),
			Content:     f,
			ContentType: contentType(name),
		})
	}

	if len(files) == 1 {
		res, err := cc.RabbitHole().PostFile(ctx, files[0], opts, c.scope())
		if err != nil {
			return c.fail(err)
		}
		c.ui.Output(fmt.Sprintf("%s: %s", res.Filename, res.Info))
		return 0
	}
	res, err := cc.RabbitHole().PostFiles(ctx, files, opts, c.scope())
	if err != nil {
		return c.fail(err)
	}
	for _, f := range files {
		c.ui.Output(fmt.Sprintf("%s: %s", f.Name, res[f.Name].Info))
	}
	return 0
}

// contentType guesses the media type of a file from its extension.
func contentType(name string) string {
	t := mime.TypeByExtension(filepath.Ext(name))
	if t == "" {
		return "application/octet-stream"
	}
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return t
}

type chatCommand struct {
	*base
	flagStream bool
}

func newChatCommand(ui cli.Ui) *chatCommand {
	c := &chatCommand{base: newBase(ui, "chat")}
	c.flags.BoolVar(&c.flagStream, "stream", false, "print tokens as they are generated")
	return c
}

func (c *chatCommand) Synopsis() string { return "Send a message to an agent" }

func (c *chatCommand) Help() string {
	return c.help(`
Usage: catctl chat [options] <text>

  Sends text to the agent and prints its reply. With -stream the message goes
  over a channel and the reply is printed token by token.`)
}

func (c *chatCommand) Run(args []string) int {
	rest, ok := c.parse(args)
	if !ok {
		return 1
	}
	if len(rest) == 0 {
		c.ui.Error("text is required")
		return cliUsage
	}
	cc, err := c.client()
	if err != nil {
		return c.fail(err)
	}
	defer c.report()
	ctx, cancel := interruptible()
	defer cancel()

	msg := message.Message{Text: strings.Join(rest, " ")}
	if !c.flagStream {
		reply, err := cc.Message().SendHTTPMessage(ctx, msg, c.scope())
		if err != nil {
			return c.fail(err)
		}
		c.ui.Output(reply.Text)
		return 0
	}

	var tokens []string
	reply, err := cc.Message().SendWebsocketMessage(ctx, msg, c.scope(), func(f message.Frame) {
		switch f.Type {
		case message.TypeChatToken:
			tokens = append(tokens, f.Content)
			c.ui.Info(f.Content)
		case message.TypeNotification:
			c.ui.Warn(f.Content)
		}
	})
	if err != nil {
		return c.fail(err)
	}
	if len(tokens) == 0 {
		c.ui.Output(reply.Text)
	}
	return 0
}

// cliUsage is the exit code of a command invoked with the wrong arguments.
const cliUsage = 2
