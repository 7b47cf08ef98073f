package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/carpoolapp/backend/internal/adapters/providers/geocoding"
	"github.com/carpoolapp/backend/internal/application/services"
	"github.com/carpoolapp/backend/internal/domain/entities"
	"github.com/carpoolapp/backend/internal/infrastructure/observability"
	"github.com/carpoolapp/backend/pkg/config"
)

type commandKind int

const (
	commandQuery commandKind = iota
	commandSelect
	commandClear
	commandQuit
)

type command struct {
	kind  commandKind
	text  string
	index int
}

// parseCommand turns one input line into a command. Anything that is not a ':' command is
// the new content of the input field.
func parseCommand(line string) (command, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, ":") {
		return command{kind: commandQuery, text: line}, nil
	}

	fields := strings.Fields(trimmed)
	switch fields[0] {
	case ":select":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("usage: :select N")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			return command{}, fmt.Errorf("invalid suggestion number %q", fields[1])
		}
		return command{kind: commandSelect, index: n - 1}, nil
	case ":clear":
		return command{kind: commandClear}, nil
	case ":quit", ":q":
		return command{kind: commandQuit}, nil
	default:
		return command{}, fmt.Errorf("unknown command %s", fields[0])
	}
}

func printState(out io.Writer, state services.SuggesterState) {
	switch {
	case state.Selected != nil:
		fmt.Fprintf(out, "selected: %s (city: %s, lon %.4f lat %.4f)\n",
			state.Selected.Address, state.Selected.City,
			state.Selected.Location.Coordinates[0], state.Selected.Location.Coordinates[1])
		return
	case state.Loading:
		fmt.Fprintln(out, "searching...")
		return
	}

	for i, s := range state.Suggestions {
		fmt.Fprintf(out, "  %d. [%s] %s - %s\n", i+1, entities.LocationIcon(s.Type), entities.ShortName(s), s.DisplayName)
	}
	if state.Message != "" {
		fmt.Fprintf(out, "  (%s) %s\n", state.MessageKind, state.Message)
	}
}

func run(ctx context.Context, in io.Reader, out io.Writer, suggester *services.LocationSuggester) error {
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for state := range suggester.Updates() {
			printState(out, state)
		}
	}()
	defer func() {
		_ = suggester.Close()
		<-printed
	}()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		cmd, err := parseCommand(scanner.Text())
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}

		switch cmd.kind {
		case commandQuery:
			suggester.SetQuery(cmd.text)
		case commandSelect:
			suggestions := suggester.State().Suggestions
			if cmd.index >= len(suggestions) {
				fmt.Fprintf(out, "no suggestion %d\n", cmd.index+1)
				continue
			}
			suggester.Select(suggestions[cmd.index])
		case commandClear:
			suggester.ClearSelection()
		case commandQuit:
			return nil
		}
	}
	return scanner.Err()
}

func main() {
	var providerName string
	flag.StringVar(&providerName, "provider", "", "Geocoding provider override (nominatim or mock)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if providerName != "" {
		cfg.Geocoding.Provider = providerName
	}

	// stdout belongs to the suggestion list
	observability.InitLoggerWithWriter("location-suggest-cli", cfg.Env, os.Stderr)

	provider, err := geocoding.NewProvider(&cfg.Geocoding)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create geocoding provider")
	}
	searchService, err := services.NewLocationSearchService(provider, services.SearchOptionsFromConfig(&cfg.Geocoding))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create location search service")
	}

	suggester := services.NewLocationSuggester(searchService, services.SuggesterOptionsFromConfig(&cfg.Geocoding))
	fmt.Println("Type a place name. Commands: :select N, :clear, :quit")

	if err := run(context.Background(), os.Stdin, os.Stdout, suggester); err != nil {
		log.Fatal().Err(err).Msg("input failed")
	}
}
