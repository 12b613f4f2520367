// pawchat is a small terminal client for Skippy messaging. It signs in, keeps
// the unread badge live, and lets you read and answer conversations, driven by
// the same sync machinery the server's tests exercise.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"skippy.dog/server/internal/msgsync"
	"skippy.dog/server/pkg/apiclient"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "API base URL")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: pawchat -email you@example.com -password secret [-url http://localhost:8080]")
		os.Exit(2)
	}

	ctx := context.Background()

	client, viewerID, err := apiclient.Login(ctx, *baseURL, *email, *password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	feed, err := apiclient.NewFeed(*baseURL, client.Token())
	if err != nil {
		log.Fatalf("failed to set up event feed: %v", err)
	}
	defer feed.Close()

	presenter := &msgsync.Presenter{
		OnToast: func(t msgsync.Toast) {
			fmt.Printf("\n🔔 %s: %s\n> ", t.SenderName, t.Body)
		},
	}

	tracker := msgsync.NewUnreadTracker(client, feed)
	tracker.OnChange = func(counts msgsync.UnreadCounts) {
		fmt.Printf("\n[unread: %d]\n> ", counts.Total)
	}
	tracker.Presenter = presenter
	if err := tracker.Initialize(ctx, viewerID); err != nil {
		log.Fatalf("failed to initialize unread tracker: %v", err)
	}
	defer tracker.Close()

	session := msgsync.NewConversationSession(client, feed, presenter, viewerID)
	session.OnChange = func() {
		if session.State() == msgsync.StateReady {
			printTimeline(session, viewerID)
		}
	}
	defer session.Close()

	fmt.Println("Signed in. Commands: ls, open <n>, send <text>, read, read-all, quit")
	repl(ctx, client, tracker, session, viewerID)
}

func repl(ctx context.Context, client *apiclient.Client, tracker *msgsync.UnreadTracker, session *msgsync.ConversationSession, viewerID uuid.UUID) {
	var conversations []apiclient.ConversationView
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		cmd, rest, _ := strings.Cut(line, " ")

		switch cmd {
		case "ls":
			var err error
			conversations, err = client.Conversations(ctx)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				break
			}
			for i, conv := range conversations {
				badge := ""
				if conv.UnreadCount > 0 {
					badge = fmt.Sprintf(" (%d unread)", conv.UnreadCount)
				}
				fmt.Printf("%d. %s%s\n", i+1, conv.OtherDisplayName, badge)
			}

		case "open":
			n, err := strconv.Atoi(rest)
			if err != nil || n < 1 || n > len(conversations) {
				fmt.Println("open <n>: pick a conversation number from ls")
				break
			}
			view := conversations[n-1]
			conv := msgsync.Conversation{
				ID:             view.ID,
				Participant1ID: viewerID,
				Participant2ID: view.OtherUserID,
				DisplayName:    view.OtherDisplayName,
			}
			if err := session.Open(ctx, conv); err != nil {
				fmt.Printf("error: %v\n", err)
			}

		case "send":
			if err := session.Send(ctx, rest); err != nil {
				fmt.Printf("error: %v\n", err)
			}

		case "read":
			conv := session.Conversation()
			if conv.ID == uuid.Nil {
				fmt.Println("no conversation open")
				break
			}
			if err := tracker.MarkConversationRead(ctx, conv.ID, conv.Participant1ID, conv.Participant2ID); err != nil {
				fmt.Printf("error: %v\n", err)
			}

		case "read-all":
			if err := tracker.MarkAllRead(ctx); err != nil {
				fmt.Printf("error: %v\n", err)
			}

		case "quit", "exit":
			return

		case "":
			// ignore blank lines

		default:
			fmt.Println("commands: ls, open <n>, send <text>, read, read-all, quit")
		}

		fmt.Print("> ")
	}
}

func printTimeline(session *msgsync.ConversationSession, viewerID uuid.UUID) {
	entries := session.Entries()
	conv := session.Conversation()

	fmt.Printf("\n--- %s ---\n", conv.DisplayName)
	for _, e := range entries {
		who := conv.DisplayName
		if e.Message.SenderID == viewerID {
			who = "you"
		}
		suffix := ""
		if e.Provisional {
			suffix = " (sending…)"
		}
		fmt.Printf("[%s] %s: %s%s\n", e.Message.CreatedAt.Format("15:04"), who, e.Message.Body, suffix)
	}
	fmt.Print("> ")
}
