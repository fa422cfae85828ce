package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"net/mail"
	"sync"
	"text/template"
	"time"

	"github.com/terra-clan/course-engine/internal/models"
)

//go:embed templates/*
var templateFS embed.FS

var (
	enrollmentText = template.Must(template.ParseFS(templateFS, "templates/enrollment.txt"))
	enrollmentHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/enrollment.html"))
)

// UserLookup resolves a user's contact details
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// EnrollmentNotifier sends the enrollment confirmation in the background
type EnrollmentNotifier struct {
	users   UserLookup
	mailer  Mailer
	appName string
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewEnrollmentNotifier creates a new EnrollmentNotifier
func NewEnrollmentNotifier(users UserLookup, mailer Mailer, appName string) *EnrollmentNotifier {
	return &EnrollmentNotifier{
		users:   users,
		mailer:  mailer,
		appName: appName,
		timeout: 30 * time.Second,
	}
}

// EnrollmentCreated queues the confirmation e-mail. Failures are logged.
func (n *EnrollmentNotifier) EnrollmentCreated(ctx context.Context, userID string, course *models.Course) {
	ctx = context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()

		if err := n.send(ctx, userID, course); err != nil {
			slog.Error("failed to send enrollment email",
				"user_id", userID,
				"course_id", course.ID,
				"error", err,
			)
		}
	}()
}

// Wait blocks until queued e-mails are done
func (n *EnrollmentNotifier) Wait() {
	n.wg.Wait()
}

func (n *EnrollmentNotifier) send(ctx context.Context, userID string, course *models.Course) error {
	u, err := n.users.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil || u.Email == "" {
		slog.Debug("skipping enrollment email, no address", "user_id", userID)
		return nil
	}

	msg, err := n.render(u, course)
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, msg)
}

func (n *EnrollmentNotifier) render(u *models.User, course *models.Course) (*Message, error) {
	data := struct {
		Name           string
		Course         string
		EstimationTime string
		AppName        string
	}{
		Name:           u.Name,
		Course:         course.Name,
		EstimationTime: course.EstimationTime,
		AppName:        n.appName,
	}

	var text, html bytes.Buffer
	if err := enrollmentText.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}
	if err := enrollmentHTML.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render html template: %w", err)
	}

	return &Message{
		To:      mail.Address{Name: u.Name, Address: u.Email},
		Subject: "You are enrolled in " + course.Name,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
