// portalctl is a terminal front end for the portal API. It keeps the signed-in
// session in a local token file and checks the caller's role before each
// screen, the same gating the web portal applies to its routes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jeffersonbalde/syborg-portal/internal/apiclient"
	"github.com/jeffersonbalde/syborg-portal/internal/config"
	"github.com/jeffersonbalde/syborg-portal/internal/model"
	"github.com/jeffersonbalde/syborg-portal/internal/session"
)

func main() {
	log.SetFlags(0)
	_ = godotenv.Load()
	cfg := config.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := apiclient.New(cfg.APIBaseURL)
	manager := session.NewManager(session.NewFileTokenStore(cfg.TokenFile), client)

	command, args := os.Args[1], os.Args[2:]
	var err error
	switch command {
	case "login":
		err = runLogin(ctx, manager, args)
	case "whoami":
		err = runWhoami(ctx, manager)
	case "logout":
		err = runLogout(ctx, manager)
	case "dashboard":
		err = runDashboard(ctx, manager, client)
	case "students":
		err = runStudents(ctx, manager, client, args)
	case "slides":
		err = runSlides(ctx, manager, client, args)
	case "events":
		err = runEvents(ctx, manager, client, args)
	case "attendance":
		err = runAttendance(ctx, manager, client, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: portalctl <command> [flags]

commands:
  login       -email <email> -password <password>
  whoami      show the signed-in user
  logout      end the session
  dashboard   show role counters
  students    list|add  (admin)
  slides      list|add  (admin for add)
  events      list|add  (admin for add)
  attendance  qr | record | list`)
}

// ensureRole restores the stored session and checks it against the roles the
// command admits. It is the CLI's route guard.
func ensureRole(ctx context.Context, manager *session.Manager, allowed ...model.Role) error {
	if err := manager.Restore(ctx); err != nil {
		if errors.Is(err, apiclient.ErrUnavailable) {
			return fmt.Errorf("portal unreachable, try again: %w", err)
		}
	}
	switch manager.Guard(allowed...) {
	case session.DecisionAllow:
		return nil
	case session.DecisionForbidden:
		return fmt.Errorf("your role %q is not allowed here", manager.Current().Role)
	default:
		return errors.New("not signed in: run `portalctl login` first")
	}
}

func runLogin(ctx context.Context, manager *session.Manager, args []string) error {
	flags := flag.NewFlagSet("login", flag.ExitOnError)
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	_ = flags.Parse(args)
	if *email == "" || *password == "" {
		return errors.New("both -email and -password are required")
	}

	identity, err := manager.Login(ctx, *email, *password)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return errors.New("invalid credentials")
		}
		return err
	}
	fmt.Printf("signed in as %s %s (%s)\n", identity.User.FirstName, identity.User.LastName, identity.Role)
	return nil
}

func runWhoami(ctx context.Context, manager *session.Manager) error {
	if err := manager.Restore(ctx); err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return errors.New("session expired: run `portalctl login`")
		}
		return err
	}
	current := manager.Current()
	if !current.SignedIn() {
		fmt.Println("not signed in")
		return nil
	}
	fmt.Printf("%s %s <%s> role=%s\n", current.User.FirstName, current.User.LastName, current.User.Email, current.Role)
	if current.User.StudentNumber != nil {
		fmt.Printf("student number: %s\n", *current.User.StudentNumber)
	}
	return nil
}

func runLogout(ctx context.Context, manager *session.Manager) error {
	_ = manager.Restore(ctx)
	manager.Logout(ctx)
	fmt.Println("signed out")
	return nil
}

func runDashboard(ctx context.Context, manager *session.Manager, client *apiclient.Client) error {
	if err := ensureRole(ctx, manager, model.RoleAdmin, model.RoleStudent); err != nil {
		return err
	}
	dashboard, err := client.Dashboard(ctx, manager.Current().Token)
	if err != nil {
		return err
	}
	if manager.Current().Role == model.RoleAdmin {
		fmt.Printf("students: %d\nevents: %d\nattendance today: %d\n",
			dashboard.Students, dashboard.Events, dashboard.AttendanceToday)
		return nil
	}
	fmt.Printf("events: %d\nmy attendance: %d\n", dashboard.Events, dashboard.MyAttendance)
	return nil
}

func runStudents(ctx context.Context, manager *session.Manager, client *apiclient.Client, args []string) error {
	if err := ensureRole(ctx, manager, model.RoleAdmin); err != nil {
		return err
	}
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	token := manager.Current().Token

	switch sub {
	case "list":
		flags := flag.NewFlagSet("students list", flag.ExitOnError)
		page := flags.Int("page", 1, "page number")
		perPage := flags.Int("per-page", 20, "results per page")
		search := flags.String("search", "", "name, email or student number")
		_ = flags.Parse(args)

		result, err := client.Students(ctx, token, *page, *perPage, *search)
		if err != nil {
			return err
		}
		for _, student := range result.Items {
			fmt.Printf("%s\t%s\t%s %s\t%s\n", student.ID, student.StudentNumber, student.FirstName, student.LastName, student.Email)
		}
		fmt.Printf("page %d/%d (%d total)\n", result.Page, pageCount(result.Total, result.PerPage), result.Total)
		return nil
	case "add":
		flags := flag.NewFlagSet("students add", flag.ExitOnError)
		email := flags.String("email", "", "account email")
		password := flags.String("password", "", "initial password")
		first := flags.String("first", "", "first name")
		last := flags.String("last", "", "last name")
		number := flags.String("number", "", "student number")
		_ = flags.Parse(args)

		student, err := client.CreateStudent(ctx, token, apiclient.NewStudent{
			Email:         *email,
			Password:      *password,
			FirstName:     *first,
			LastName:      *last,
			StudentNumber: *number,
		})
		if err != nil {
			if errors.Is(err, apiclient.ErrConflict) {
				return errors.New("a student with that email or number already exists")
			}
			return err
		}
		fmt.Printf("created %s (%s)\n", student.ID, student.StudentNumber)
		return nil
	case "rm":
		if len(args) != 1 {
			return errors.New("usage: students rm <id>")
		}
		if err := client.DeleteStudent(ctx, token, args[0]); err != nil {
			return err
		}
		fmt.Println("deleted")
		return nil
	default:
		return fmt.Errorf("unknown students subcommand %q", sub)
	}
}

func runSlides(ctx context.Context, manager *session.Manager, client *apiclient.Client, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list":
		// The public carousel needs no session.
		var token string
		if err := manager.Restore(ctx); err == nil {
			token = manager.Current().Token
		}
		slides, err := client.Slides(ctx, token)
		if err != nil {
			return err
		}
		for _, slide := range slides {
			state := "active"
			if !slide.Active {
				state = "hidden"
			}
			fmt.Printf("%d\t%s\t%s\t%s\n", slide.Position, slide.ID, state, slide.Title)
		}
		return nil
	case "add":
		if err := ensureRole(ctx, manager, model.RoleAdmin); err != nil {
			return err
		}
		flags := flag.NewFlagSet("slides add", flag.ExitOnError)
		title := flags.String("title", "", "slide title")
		subtitle := flags.String("subtitle", "", "slide subtitle")
		imageURL := flags.String("image", "", "image URL")
		position := flags.Int("position", 0, "carousel position")
		_ = flags.Parse(args)

		slide := apiclient.NewSlide{
			Title:    *title,
			ImageURL: *imageURL,
			Position: int32(*position),
		}
		if *subtitle != "" {
			slide.Subtitle = subtitle
		}
		created, err := client.CreateSlide(ctx, manager.Current().Token, slide)
		if err != nil {
			return err
		}
		fmt.Printf("created %s at position %d\n", created.ID, created.Position)
		return nil
	case "rm":
		if err := ensureRole(ctx, manager, model.RoleAdmin); err != nil {
			return err
		}
		if len(args) != 1 {
			return errors.New("usage: slides rm <id>")
		}
		if err := client.DeleteSlide(ctx, manager.Current().Token, args[0]); err != nil {
			return err
		}
		fmt.Println("deleted")
		return nil
	default:
		return fmt.Errorf("unknown slides subcommand %q", sub)
	}
}

func runEvents(ctx context.Context, manager *session.Manager, client *apiclient.Client, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list":
		if err := ensureRole(ctx, manager, model.RoleAdmin, model.RoleStudent); err != nil {
			return err
		}
		events, err := client.Events(ctx, manager.Current().Token, 0)
		if err != nil {
			return err
		}
		for _, event := range events {
			fmt.Printf("%s\t%s\t%s\n", event.ID, time.Unix(event.StartsAt, 0).UTC().Format(time.RFC3339), event.Title)
		}
		return nil
	case "add":
		if err := ensureRole(ctx, manager, model.RoleAdmin); err != nil {
			return err
		}
		flags := flag.NewFlagSet("events add", flag.ExitOnError)
		title := flags.String("title", "", "event title")
		location := flags.String("location", "", "venue")
		starts := flags.String("starts", "", "start time (RFC3339)")
		ends := flags.String("ends", "", "end time (RFC3339)")
		_ = flags.Parse(args)

		startsAt, err := time.Parse(time.RFC3339, *starts)
		if err != nil {
			return fmt.Errorf("bad -starts: %w", err)
		}
		endsAt, err := time.Parse(time.RFC3339, *ends)
		if err != nil {
			return fmt.Errorf("bad -ends: %w", err)
		}
		event := apiclient.NewEvent{
			Title:    *title,
			StartsAt: startsAt.Unix(),
			EndsAt:   endsAt.Unix(),
		}
		if *location != "" {
			event.Location = location
		}
		created, err := client.CreateEvent(ctx, manager.Current().Token, event)
		if err != nil {
			return err
		}
		fmt.Printf("created %s\n", created.ID)
		return nil
	default:
		return fmt.Errorf("unknown events subcommand %q", sub)
	}
}

func runAttendance(ctx context.Context, manager *session.Manager, client *apiclient.Client, args []string) error {
	sub := ""
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "qr":
		if err := ensureRole(ctx, manager, model.RoleStudent); err != nil {
			return err
		}
		code, err := client.IssueQRCode(ctx, manager.Current().Token)
		if err != nil {
			return err
		}
		fmt.Printf("code: %s (valid %ds)\n", code.Code, code.Validity)
		return nil
	case "record":
		if err := ensureRole(ctx, manager, model.RoleAdmin); err != nil {
			return err
		}
		flags := flag.NewFlagSet("attendance record", flag.ExitOnError)
		eventID := flags.String("event", "", "event id")
		code := flags.String("code", "", "scanned QR code")
		number := flags.String("number", "", "student number")
		_ = flags.Parse(args)
		if *eventID == "" {
			return errors.New("-event is required")
		}

		var record apiclient.AttendanceRecord
		var err error
		switch {
		case *code != "":
			record, err = client.RecordAttendanceByCode(ctx, manager.Current().Token, *eventID, *code)
		case *number != "":
			record, err = client.RecordAttendanceByNumber(ctx, manager.Current().Token, *eventID, *number)
		default:
			return errors.New("one of -code or -number is required")
		}
		if err != nil {
			if errors.Is(err, apiclient.ErrConflict) {
				return errors.New("attendance already complete for this student")
			}
			return err
		}
		if record.TimeOut != nil {
			fmt.Println("time out recorded")
		} else {
			fmt.Println("time in recorded")
		}
		return nil
	case "list":
		if err := ensureRole(ctx, manager, model.RoleAdmin); err != nil {
			return err
		}
		flags := flag.NewFlagSet("attendance list", flag.ExitOnError)
		eventID := flags.String("event", "", "event id")
		_ = flags.Parse(args)
		if *eventID == "" {
			return errors.New("-event is required")
		}

		records, err := client.EventAttendance(ctx, manager.Current().Token, *eventID)
		if err != nil {
			return err
		}
		for _, record := range records {
			out := "-"
			if record.TimeOut != nil {
				out = time.Unix(*record.TimeOut, 0).UTC().Format("15:04:05")
			}
			fmt.Printf("%s\tin=%s\tout=%s\t%s\n", record.Student,
				time.Unix(record.TimeIn, 0).UTC().Format("15:04:05"), out, record.Method)
		}
		return nil
	default:
		return errors.New("usage: attendance qr|record|list")
	}
}

func pageCount(total int64, perPage int32) int64 {
	if perPage <= 0 {
		return 1
	}
	pages := total / int64(perPage)
	if total%int64(perPage) != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}
	return pages
}
