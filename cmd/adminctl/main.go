// Command adminctl is a small operator tool for the village admin service.
// It signs in, then drives the village code procedures over the batched RPC
// endpoint using the typed client.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/arklim/village-admin/internal/client"
	"github.com/arklim/village-admin/internal/rpc"
)

const usage = `usage: adminctl [flags] <command> [args]

commands:
  health                         check service liveness
  list [-hidden]                 list village codes
  get <id>                       fetch one village code
  create <code> <name> <color>   create a village code
  update <id> [-name] [-color] [-visible]
  delete <id>                    delete a village code

flags:
  -addr      service base URL (default http://localhost:8080, env VILLAGE_ADDR)
  -email     operator email (env VILLAGE_EMAIL)
  -password  operator password (env VILLAGE_PASSWORD)
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "adminctl:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("VILLAGE_ADDR", "http://localhost:8080"), "service base URL")
	email := flag.String("email", os.Getenv("VILLAGE_EMAIL"), "operator email")
	password := flag.String("password", os.Getenv("VILLAGE_PASSWORD"), "operator password")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("missing command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cli := client.New(*addr)
	defer cli.Close()

	if args[0] == "health" {
		status, err := cli.Healthcheck(ctx)
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil
	}

	if *email == "" || *password == "" {
		return fmt.Errorf("email and password are required (flags or VILLAGE_EMAIL/VILLAGE_PASSWORD)")
	}
	if err := cli.SignIn(ctx, *email, *password); err != nil {
		return err
	}
	defer cli.SignOut(context.Background())

	codes := cli.VillageCodes()

	switch args[0] {
	case "list":
		return runList(ctx, codes, args[1:])
	case "get":
		return runGet(ctx, codes, args[1:])
	case "create":
		return runCreate(ctx, codes, args[1:])
	case "update":
		return runUpdate(ctx, codes, args[1:])
	case "delete":
		return runDelete(ctx, codes, args[1:])
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runList(ctx context.Context, codes client.VillageCodes, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	hidden := fs.Bool("hidden", false, "include hidden entries")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := codes.List(ctx, *hidden)
	if err != nil {
		return err
	}
	return printJSON(records)
}

func runGet(ctx context.Context, codes client.VillageCodes, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}

	record, err := codes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("village code %d not found", id)
	}
	return printJSON(record)
}

func runCreate(ctx context.Context, codes client.VillageCodes, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("create needs <code> <name> <color>")
	}

	record, err := codes.Create(ctx, rpc.CreateVillageCodeInput{
		Code:     args[0],
		Name:     args[1],
		ColorHex: args[2],
	})
	if err != nil {
		return err
	}
	return printJSON(record)
}

func runUpdate(ctx context.Context, codes client.VillageCodes, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	name := fs.String("name", "", "new display name")
	color := fs.String("color", "", "new hex color")
	visible := fs.String("visible", "", "visibility: true or false")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	input := rpc.UpdateVillageCodeInput{ID: id}
	if *name != "" {
		input.Name = name
	}
	if *color != "" {
		input.ColorHex = color
	}
	switch *visible {
	case "":
	case "true", "false":
		v := *visible == "true"
		input.IsVisible = &v
	default:
		return fmt.Errorf("-visible must be true or false")
	}

	if input.Name == nil && input.ColorHex == nil && input.IsVisible == nil {
		return fmt.Errorf("nothing to update")
	}

	record, err := codes.Update(ctx, input)
	if err != nil {
		return err
	}
	return printJSON(record)
}

func runDelete(ctx context.Context, codes client.VillageCodes, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}

	record, err := codes.Delete(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(record)
}

func parseID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("missing id")
	}
	var id int64
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
