// bumactl is a terminal client for BumaView: log in, browse interview
// questions, manage bookmarks and ask the assist service for follow-ups.
// Session state persists across invocations in the state folder.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/common-nighthawk/go-figure"

	"github.com/bumaview/bumaview-go"
	"github.com/bumaview/bumaview-go/api"
	"github.com/bumaview/bumaview-go/internal/config"
	"github.com/bumaview/bumaview-go/session"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("bumactl: %s\n", err)
	}
}

// contextFile is the optional per-user TOML config. Environment
// variables win over it.
type contextFile struct {
	APIURL      string `toml:"api_url"`
	AIURL       string `toml:"ai_url"`
	StateFolder string `toml:"state_folder"`
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return nil
	}

	if err := applyContextFile(); err != nil {
		return err
	}
	cfg := config.New()

	client, err := bumaview.New(cfg, bumaview.WithHandlers(session.Handlers{
		OnWarning: func(countdown time.Duration) {
			fmt.Fprintf(os.Stderr, "session expires in %s\n", countdown)
		},
		OnLoggedOut: func(reason session.LogoutReason) {
			fmt.Fprintf(os.Stderr, "logged out (%s)\n", reason)
		},
	}))
	if err != nil {
		return err
	}
	defer client.Cache.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetRequestTimeout())
	defer cancel()

	switch cmd, rest := args[0], args[1:]; cmd {
	case "login":
		return cmdLogin(ctx, client, rest)
	case "logout":
		return cmdLogout(ctx, client)
	case "whoami":
		return cmdWhoami(ctx, client)
	case "interviews":
		return cmdInterviews(ctx, client, rest)
	case "bookmarks":
		return cmdBookmarks(ctx, client, rest)
	case "assist":
		return cmdAssist(ctx, client, rest)
	case "help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// applyContextFile loads ~/.config/bumactl/config.toml (or
// $BUMACTL_CONFIG) into the environment, without overriding variables
// the user already set.
func applyContextFile() error {
	path := os.Getenv("BUMACTL_CONFIG")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(home, ".config", "bumactl", "config.toml")
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	var ctx contextFile
	if _, err := toml.DecodeFile(path, &ctx); err != nil {
		return fmt.Errorf("context file %s: %w", path, err)
	}
	setIfUnset("BUMAVIEW_API_URL", ctx.APIURL)
	setIfUnset("BUMAVIEW_AI_URL", ctx.AIURL)
	setIfUnset("BUMAVIEW_STATE_FOLDER", ctx.StateFolder)
	return nil
}

func setIfUnset(envVar, value string) {
	if value != "" && os.Getenv(envVar) == "" {
		os.Setenv(envVar, value)
	}
}

func cmdLogin(ctx context.Context, client *bumaview.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	id := fs.String("id", "", "account id")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" || *password == "" {
		return fmt.Errorf("login requires -id and -password")
	}

	user, err := client.Login(ctx, *id, *password)
	if err != nil {
		return err
	}
	if user != nil {
		fmt.Printf("logged in as %s (%s)\n", user.Username, user.Role)
	} else {
		fmt.Println("logged in")
	}
	return nil
}

func cmdLogout(ctx context.Context, client *bumaview.Client) error {
	if err := client.Resume(ctx); err != nil {
		fmt.Println("not logged in")
		return nil
	}
	client.Logout()
	fmt.Println("logged out")
	return nil
}

func cmdWhoami(ctx context.Context, client *bumaview.Client) error {
	if err := client.Resume(ctx); err != nil {
		return fmt.Errorf("not logged in: %w", err)
	}
	user, err := client.API.Auth.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\t%s\n", user.ID, user.Username, user.Role)
	return nil
}

func cmdInterviews(ctx context.Context, client *bumaview.Client, args []string) error {
	fs := flag.NewFlagSet("interviews", flag.ContinueOnError)
	company := fs.String("company", "", "filter by company name")
	category := fs.String("category", "", "filter by category")
	year := fs.Int("year", 0, "filter by year")
	keyword := fs.String("keyword", "", "search keyword")
	page := fs.Int("page", 0, "page number")
	size := fs.Int("size", 0, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := client.Resume(ctx); err != nil {
		return fmt.Errorf("not logged in: %w", err)
	}

	list, err := client.Cache.Interviews(ctx, api.InterviewFilter{
		Company:  *company,
		Category: *category,
		Year:     *year,
		Keyword:  *keyword,
		Page:     *page,
		Size:     *size,
	})
	if err != nil {
		return err
	}
	for _, iv := range list {
		fmt.Printf("%d\t%s\n", iv.ID, iv.Question)
	}
	return nil
}

func cmdBookmarks(ctx context.Context, client *bumaview.Client, args []string) error {
	fs := flag.NewFlagSet("bookmarks", flag.ContinueOnError)
	add := fs.Int64("add", 0, "bookmark an interview question by id")
	remove := fs.Int64("remove", 0, "remove a bookmark by interview id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := client.Resume(ctx); err != nil {
		return fmt.Errorf("not logged in: %w", err)
	}

	switch {
	case *add != 0:
		return client.Cache.SetBookmarked(ctx, *add, true)
	case *remove != 0:
		return client.Cache.SetBookmarked(ctx, *remove, false)
	default:
		list, err := client.Cache.Bookmarks(ctx)
		if err != nil {
			return err
		}
		for _, bm := range list {
			fmt.Printf("%d\tinterview %d\n", bm.ID, bm.InterviewID)
		}
		return nil
	}
}

func cmdAssist(ctx context.Context, client *bumaview.Client, args []string) error {
	fs := flag.NewFlagSet("assist", flag.ContinueOnError)
	interviewID := fs.Int64("interview", 0, "interview question id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *interviewID == 0 {
		return fmt.Errorf("assist requires -interview")
	}
	if err := client.Resume(ctx); err != nil {
		return fmt.Errorf("not logged in: %w", err)
	}

	iv, err := client.API.Interviews.Get(ctx, *interviewID)
	if err != nil {
		return err
	}
	followUps, err := client.API.Assist.FollowUps(ctx, iv.Question)
	if err != nil {
		return err
	}
	for _, q := range followUps {
		fmt.Printf("- %s\n", q)
	}
	return nil
}

func usage() {
	displayAppname(config.New().GetAppName())
	fmt.Println(`usage: bumactl <command> [flags]

commands:
  login      -id <id> -password <password>
  logout
  whoami
  interviews [-company] [-category] [-year] [-keyword] [-page] [-size]
  bookmarks  [-add <id> | -remove <id>]
  assist     -interview <id>`)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
