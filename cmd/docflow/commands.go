package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/BriefyHQ/docflow/pkg/cmd"
	"github.com/BriefyHQ/docflow/pkg/document"
	"github.com/BriefyHQ/docflow/pkg/log"
	"github.com/BriefyHQ/docflow/pkg/persistence"
	"github.com/BriefyHQ/docflow/pkg/workflow"
)

// EntitiesCommand lists every entity with a registered workflow definition.
func EntitiesCommand() *cli.Command {
	return &cli.Command{
		Name:  "entities",
		Usage: "List entities with a registered workflow",
		Action: func(ctx context.Context, command *cli.Command) error {
			reg := cmd.NewRegistry(log.WithModule("cli"))

			for _, entity := range reg.Entities() {
				fmt.Println(entity)
			}

			return nil
		},
	}
}

// StatesCommand prints the states and transitions of an entity's workflow.
func StatesCommand() *cli.Command {
	return &cli.Command{
		Name:      "states",
		Usage:     "Show the states and transitions of an entity's workflow",
		ArgsUsage: "<entity>",
		Action: func(ctx context.Context, command *cli.Command) error {
			entity := command.Args().First()
			if entity == "" {
				return fmt.Errorf("usage: docflow states <entity>")
			}

			reg := cmd.NewRegistry(log.WithModule("cli"))

			def, err := reg.Definition(entity)
			if err != nil {
				return err
			}

			for _, state := range def.States() {
				marker := " "
				if state == def.InitialState() {
					marker = "*"
				}

				fmt.Printf("%s %s (%s)\n", marker, state.Name(), state.Value())

				for _, t := range state.Transitions() {
					line := fmt.Sprintf("    %s -> %s", t.Name(), t.To())
					if t.PermissionName() != "" {
						line += fmt.Sprintf(" [requires %s]", t.PermissionName())
					}

					if t.Synthetic() {
						line += " [shared]"
					}

					fmt.Println(line)
				}
			}

			return nil
		},
	}
}

// ShowCommand prints a stored document's workflow view.
func ShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a document's current state, history and attributes",
		ArgsUsage: "<entity> <id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			entity := command.Args().Get(0)
			id := command.Args().Get(1)

			if entity == "" || id == "" {
				return fmt.Errorf("usage: docflow show <entity> <id>")
			}

			wf, store, err := loadWorkflow(ctx, command, entity, id, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Printf("Entity: %s\n", entity)
			fmt.Printf("State:  %s\n", wf.StateValue())

			history := wf.History()
			if len(history) > 0 {
				fmt.Println("History:")

				for _, entry := range history {
					fmt.Printf("  %s  %s -> %s (%s by %s)\n",
						entry.Date.Format("2006-01-02 15:04:05"),
						entry.From, entry.To, entry.Transition, entry.Actor)
				}
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			fmt.Println("Document:")

			return encoder.Encode(wf.Document())
		},
	}
}

// TransitionCommand executes a transition on a stored document and saves the
// result.
func TransitionCommand() *cli.Command {
	return &cli.Command{
		Name:      "transition",
		Usage:     "Run a transition on a stored document",
		ArgsUsage: "<entity> <id> <transition>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "actor",
				Usage: "Actor id performing the transition",
			},
			&cli.StringSliceFlag{
				Name:  "groups",
				Usage: "Groups the actor belongs to",
			},
			&cli.StringFlag{
				Name:  "message",
				Usage: "Audit message recorded with the transition",
			},
			&cli.StringSliceFlag{
				Name:  "field",
				Usage: "Document field to set, as key=value (repeatable)",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			entity := command.Args().Get(0)
			id := command.Args().Get(1)
			name := command.Args().Get(2)

			if entity == "" || id == "" || name == "" {
				return fmt.Errorf("usage: docflow transition <entity> <id> <transition>")
			}

			var actor *workflow.Actor
			if actorID := command.String("actor"); actorID != "" {
				actor = &workflow.Actor{ID: actorID, Groups: command.StringSlice("groups")}
			}

			wf, store, err := loadWorkflow(ctx, command, entity, id, actor)
			if err != nil {
				return err
			}
			defer store.Close()

			opts := []workflow.CallOption{}
			if message := command.String("message"); message != "" {
				opts = append(opts, workflow.WithMessage(message))
			}

			for _, pair := range command.StringSlice("field") {
				key, value, found := strings.Cut(pair, "=")
				if !found {
					return fmt.Errorf("invalid --field %q, expected key=value", pair)
				}

				opts = append(opts, workflow.WithField(key, value))
			}

			if err := wf.Transition(ctx, name, opts...); err != nil {
				return err
			}

			if err := saveDocument(ctx, store, wf); err != nil {
				return err
			}

			fmt.Printf("%s %s: %s\n", entity, id, wf.StateValue())

			return nil
		},
	}
}

func loadWorkflow(
	ctx context.Context,
	command *cli.Command,
	entity, id string,
	actor *workflow.Actor,
) (*workflow.Workflow, persistence.Store, error) {
	logger := log.WithModule("cli")

	reg := cmd.NewRegistry(logger)

	def, err := reg.Definition(entity)
	if err != nil {
		return nil, nil, err
	}

	store, err := cmd.NewStore(ctx, logger, command.String("database-url"))
	if err != nil {
		return nil, nil, err
	}

	doc, err := store.DocumentByID(ctx, id)
	if err != nil {
		store.Close()

		return nil, nil, err
	}

	wf, err := workflow.New(def, doc, actor, workflow.WithLogger(logger))
	if err != nil {
		store.Close()

		return nil, nil, err
	}

	return wf, store, nil
}

func saveDocument(ctx context.Context, store persistence.Store, wf *workflow.Workflow) error {
	doc, ok := wf.Document().(*document.MapDocument)
	if !ok {
		return fmt.Errorf("unexpected document type %T", wf.Document())
	}

	return store.SaveDocument(ctx, doc)
}
