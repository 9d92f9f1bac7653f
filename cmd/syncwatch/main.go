// Command syncwatch runs the notification, message and presence controllers against a
// marketsync server and drives them from stdin.
//
// Lines typed on stdin are sent to the booking thread. Lines starting with "/" are commands:
//
//	/notifs          list notification groups
//	/read ID         mark one notification group read
//	/readall         mark every notification read
//	/seen            send a read receipt for the thread
//	/status STATUS   set presence (online, away, busy, offline)
//	/available BOOL  toggle availability
//	/who             list presence
//	/attach PATH     send a file or image
//	/quote TEXT      quote on the booking
//	/hide, /show     simulate the app losing and regaining visibility
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"marketsync/config"
	"marketsync/internal/client"
	"marketsync/internal/domain"
	"marketsync/internal/realtime"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("[config] .env: %v", err)
	}
	cfg := config.Load()
	flag.StringVar(&cfg.Client.BaseURL, "url", cfg.Client.BaseURL, "server base URL")
	flag.StringVar(&cfg.Client.AccessToken, "token", cfg.Client.AccessToken, "access token (see devtoken)")
	bookingID := flag.String("booking", "", "booking thread to open")
	provider := flag.String("new-booking", "", "create a booking with this provider id and open it")
	flag.Parse()
	if cfg.Client.AccessToken == "" {
		log.Fatal("access token required: -token or MARKETSYNC_TOKEN")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := client.New(&cfg.Client)
	me, err := c.Me(ctx)
	if err != nil {
		log.Fatalf("who am i: %v", err)
	}
	if *provider != "" {
		b, err := c.CreateBooking(ctx, *provider)
		if err != nil {
			log.Fatalf("create booking: %v", err)
		}
		*bookingID = b.ID
		fmt.Printf("created booking %s\n", b.ID)
	}

	notifs := realtime.NewNotificationSync(
		c.Notifications(cfg.Sync.FetchLimit),
		client.NewFeed[realtime.Notification](c, domain.TableNotifications),
		c.Notifications(cfg.Sync.FetchLimit),
		realtime.AlertFunc(func(n realtime.Notification) { fmt.Printf("\a[alert] %s\n", n.Message) }),
	)
	if err := notifs.Activate(ctx, me.ID); err != nil {
		log.Fatalf("notifications: %v", err)
	}
	defer notifs.Deactivate()
	fmt.Printf("signed in as %s, %d unread\n", me.ID, notifs.UnreadCount())

	presence := realtime.NewPresenceSync(me.ID, c.Presence(), client.NewFeed[realtime.Presence](c, domain.TablePresence), c.Presence(), cfg.Sync.OfflineTimeout)
	if err := presence.Activate(ctx); err != nil {
		log.Fatalf("presence: %v", err)
	}
	defer presence.Deactivate()

	var (
		thread *realtime.MessageSync
		peer   string
	)
	if *bookingID != "" {
		b, err := c.Booking(ctx, *bookingID)
		if err != nil {
			log.Fatalf("booking: %v", err)
		}
		peer = b.Counterpart(me.ID)
		thread = realtime.NewMessageSync(me.ID, c.Messages(), client.NewFeed[realtime.Message](c, domain.TableMessages), c.Messages(), c.Uploads(), realtime.MessageSyncConfig{
			ReadReceiptDelay: cfg.Sync.ReadReceiptDelay,
			PendingWindow:    cfg.Sync.PendingWindow,
		})
		if err := thread.Activate(ctx, b.ID); err != nil {
			log.Fatalf("messages: %v", err)
		}
		defer thread.Deactivate()
		for _, m := range thread.Thread() {
			printMessage(me.ID, m)
		}
		fmt.Printf("chatting with %s (%s is %s)\n", peer, peer, presence.GetStatus(peer))
	}

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	sh := &shell{me: me.ID, peer: peer, c: c, notifs: notifs, presence: presence, thread: thread}
	for {
		select {
		case <-ctx.Done():
			fmt.Println("signing off")
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := sh.run(ctx, strings.TrimSpace(line)); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		}
	}
}

type shell struct {
	me, peer string
	c        *client.Client
	notifs   *realtime.NotificationSync
	presence *realtime.PresenceSync
	thread   *realtime.MessageSync
}

func (s *shell) run(ctx context.Context, line string) error {
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		if s.thread == nil {
			return fmt.Errorf("no booking open (use -booking)")
		}
		m, err := s.thread.Send(ctx, line, s.peer, domain.MessageTypeText)
		if err == nil {
			printMessage(s.me, m)
		}
		return err
	}
	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "notifs":
		for _, g := range s.notifs.Groups() {
			mark := " "
			if g.Unread {
				mark = "*"
			}
			fmt.Printf("%s %s %s (%d)\n", mark, g.Latest.ID, g.Latest.Message, len(g.Members))
		}
		fmt.Printf("%d unread\n", s.notifs.UnreadCount())
	case "read":
		return s.notifs.MarkGroupRead(ctx, arg)
	case "readall":
		return s.notifs.MarkAllRead(ctx)
	case "status":
		return s.presence.SetStatus(ctx, arg)
	case "available":
		v, err := strconv.ParseBool(arg)
		if err != nil {
			return err
		}
		return s.presence.SetAvailability(ctx, v)
	case "who":
		for _, p := range s.presence.Snapshot() {
			fmt.Printf("%s %s available=%t last_seen=%s\n", p.UserID, p.Status, s.presence.IsAvailable(p.UserID), p.LastSeen.Format("15:04:05"))
		}
	case "hide", "show":
		visible := cmd == "show"
		s.presence.VisibilityChanged(ctx, visible)
		s.notifs.SetForeground(visible)
		if s.thread != nil {
			s.thread.SetFocused(visible)
		}
	default:
		return s.threadCommand(ctx, cmd, arg)
	}
	return nil
}

func (s *shell) threadCommand(ctx context.Context, cmd, arg string) error {
	if s.thread == nil {
		return fmt.Errorf("/%s needs an open booking", cmd)
	}
	switch cmd {
	case "seen":
		return s.thread.MarkThreadRead(ctx, s.peer)
	case "quote":
		return s.c.SendQuote(ctx, s.thread.Scope(), arg)
	case "attach":
		f, err := os.Open(arg)
		if err != nil {
			return err
		}
		defer f.Close()
		kind := domain.MessageTypeFile
		switch strings.ToLower(filepath.Ext(arg)) {
		case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic":
			kind = domain.MessageTypeImage
		}
		m, err := s.thread.SendAttachment(ctx, f, filepath.Base(arg), s.peer, kind)
		if err == nil {
			printMessage(s.me, m)
		}
		return err
	}
	return fmt.Errorf("unknown command /%s", cmd)
}

func printMessage(me string, m realtime.Message) {
	who := m.SenderID
	if who == me {
		who = "me"
	}
	read := ""
	if m.SenderID == me && m.IsRead {
		read = " (seen)"
	}
	fmt.Printf("[%s] %s: %s%s\n", m.CreatedAt.Local().Format("15:04"), who, m.Content, read)
}
