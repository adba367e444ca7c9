package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"campusattend/internal/config"
	"campusattend/internal/course"
	"campusattend/internal/notify"
	"campusattend/internal/queue"
	"campusattend/internal/store"
)

// Worker consumes notification messages and fans them out by email.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "campusattend:notifications")
	}

	var sender notify.Sender
	if cfg.SendgridAPIKey != "" {
		sender = notify.NewSendgridSender(cfg.SendgridAPIKey, cfg.AppName, cfg.FromEmail)
		log.Println("SendGrid sender configured")
	} else {
		sender = notify.LogSender{}
		log.Println("SENDGRID_API_KEY not set, emails go to the process log")
	}

	courses := course.NewPostgresRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		switch msg.Type {
		case queue.TypeClassStarted, queue.TypeClassCompleted:
			var evt queue.ClassEvent
			if err := json.Unmarshal(msg.Body, &evt); err != nil {
				log.Printf("bad %s payload: %v", msg.Type, err)
				continue
			}
			notifyRoster(ctx, courses, sender, msg.Type, evt)

		case queue.TypeAttendanceRecorded:
			var evt queue.AttendanceEvent
			if err := json.Unmarshal(msg.Body, &evt); err != nil {
				log.Printf("bad %s payload: %v", msg.Type, err)
				continue
			}
			log.Printf("attendance %s: user=%s class=%s action=%s", evt.AttendanceID, evt.UserID, evt.ClassID, evt.Action)

		default:
			log.Printf("skipping message type %q", msg.Type)
		}
	}

	log.Println("worker stopped")
}

func notifyRoster(ctx context.Context, courses *course.PostgresRepository, sender notify.Sender, msgType string, evt queue.ClassEvent) {
	roster, err := courses.ListRegistrants(ctx, evt.CurriculumCourseID)
	if err != nil {
		log.Printf("roster lookup for course %s failed: %v", evt.CurriculumCourseID, err)
		return
	}

	subject, body := renderClassEmail(msgType, evt)
	sent := 0
	for _, reg := range roster {
		err := sender.Send(notify.Email{
			ToName:    reg.Name,
			ToAddress: reg.Email,
			Subject:   subject,
			TextBody:  body,
			HTMLBody:  "<p>" + body + "</p>",
		})
		if err != nil {
			log.Printf("email to %s failed: %v", reg.Email, err)
			continue
		}
		sent++
	}
	log.Printf("%s for class %s: notified %d/%d registrants", msgType, evt.ClassID, sent, len(roster))
}

func renderClassEmail(msgType string, evt queue.ClassEvent) (subject, body string) {
	when := evt.OccurredAt.Format("Mon, 02 Jan 2006 15:04 MST")
	switch msgType {
	case queue.TypeClassStarted:
		subject = fmt.Sprintf("%s has started", evt.ClassName)
		body = fmt.Sprintf("%s started at %s. Clock in within the attendance window to be counted.", evt.ClassName, when)
	default:
		subject = fmt.Sprintf("%s has ended", evt.ClassName)
		body = fmt.Sprintf("%s ended at %s. Clock out now to complete your attendance.", evt.ClassName, when)
	}
	return subject, body
}
