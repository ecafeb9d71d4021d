// Package scheduler runs the daily batch jobs: installment reminders, the
// overdue sweep and the admin summary. It assumes a single server instance;
// there is no distributed lock.
package scheduler

import (
	"context"
	"log"
	"os"
	"time"

	"installmart/models"
	"installmart/utils"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ReminderWindow is how far ahead of a due date reminders go out.
const ReminderWindow = 72 * time.Hour

// Cron specs for the daily jobs, in the scheduler's timezone.
const (
	reminderSpec = "0 9 * * *"
	overdueSpec  = "1 0 * * *"
	summarySpec  = "0 20 * * *"
)

// Scheduler owns the cron entries and the collections they sweep.
type Scheduler struct {
	OrderCollection *mongo.Collection
	UserCollection  *mongo.Collection
	EmailService    *utils.EmailService
	cron            *cron.Cron
	loc             *time.Location
	adminEmail      string
}

// New builds the scheduler. The timezone comes from SCHEDULER_TZ and
// defaults to Asia/Karachi.
func New(client *mongo.Client, emailService *utils.EmailService) *Scheduler {
	tz := os.Getenv("SCHEDULER_TZ")
	if tz == "" {
		tz = "Asia/Karachi"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("Invalid SCHEDULER_TZ %q, falling back to UTC: %v", tz, err)
		loc = time.UTC
	}

	db := client.Database(utils.DatabaseName)
	return &Scheduler{
		OrderCollection: db.Collection("orders"),
		UserCollection:  db.Collection("users"),
		EmailService:    emailService,
		cron:            cron.New(cron.WithLocation(loc)),
		loc:             loc,
		adminEmail:      os.Getenv("ADMIN_EMAIL"),
	}
}

// Start registers the three daily jobs and starts the cron loop.
func (s *Scheduler) Start() {
	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{"installment reminders", reminderSpec, s.SendReminders},
		{"overdue sweep", overdueSpec, s.SweepOverdue},
		{"daily summary", summarySpec, s.SendDailySummary},
	}
	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.fn); err != nil {
			log.Printf("Failed to schedule %s (%q): %v", job.name, job.spec, err)
		}
	}
	s.cron.Start()
	log.Printf("Scheduler started in %s", s.loc)
}

// Stop stops the cron loop.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// SendReminders emails every buyer with a pending installment due within
// the next 3 days. ReminderSentAt keeps a same-day re-run from mailing
// anyone twice.
func (s *Scheduler) SendReminders() {
	now := time.Now().In(s.loc)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	filter := bson.M{"installments": bson.M{"$elemMatch": bson.M{
		"status":   models.InstallmentPending,
		"due_date": bson.M{"$gte": now, "$lte": now.Add(ReminderWindow)},
	}}}

	cursor, err := s.OrderCollection.Find(ctx, filter)
	if err != nil {
		log.Printf("Reminder sweep query failed: %v", err)
		return
	}
	defer cursor.Close(ctx)

	sent := 0
	for cursor.Next(ctx) {
		var order models.Order
		if err := cursor.Decode(&order); err != nil {
			log.Printf("Reminder sweep decode failed: %v", err)
			continue
		}

		due := order.InstallmentsDueWithin(now, ReminderWindow)
		if len(due) == 0 {
			continue
		}

		email := s.recipient(ctx, order)
		if email == "" {
			log.Printf("No recipient for order %s, skipping reminders", order.ID.Hex())
			continue
		}

		for _, inst := range due {
			if err := s.EmailService.SendInstallmentReminder(email, order, *inst); err != nil {
				log.Printf("Failed to send reminder to %s: %v", email, err)
				continue
			}
			inst.ReminderSentAt = &now
			sent++
		}

		_, err := s.OrderCollection.UpdateOne(ctx, bson.M{"_id": order.ID},
			bson.M{"$set": bson.M{"installments": order.Installments}})
		if err != nil {
			log.Printf("Failed to record reminders for order %s: %v", order.ID.Hex(), err)
		}
	}
	if err := cursor.Err(); err != nil {
		log.Printf("Reminder sweep cursor error: %v", err)
	}

	log.Printf("Reminder sweep sent %d reminders", sent)
}

// SweepOverdue flips past-due pending installments to overdue and moves
// each order's next due date forward. Already-overdue installments are
// untouched, so a second run in the same day is a no-op.
func (s *Scheduler) SweepOverdue() {
	now := time.Now().In(s.loc)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	filter := bson.M{"installments": bson.M{"$elemMatch": bson.M{
		"status":   models.InstallmentPending,
		"due_date": bson.M{"$lt": now},
	}}}

	cursor, err := s.OrderCollection.Find(ctx, filter)
	if err != nil {
		log.Printf("Overdue sweep query failed: %v", err)
		return
	}
	defer cursor.Close(ctx)

	flipped := 0
	for cursor.Next(ctx) {
		var order models.Order
		if err := cursor.Decode(&order); err != nil {
			log.Printf("Overdue sweep decode failed: %v", err)
			continue
		}

		n := order.SweepOverdue(now)
		if n == 0 {
			continue
		}

		_, err := s.OrderCollection.UpdateOne(ctx, bson.M{"_id": order.ID}, bson.M{"$set": bson.M{
			"installments":  order.Installments,
			"next_due_date": order.NextDueDate,
		}})
		if err != nil {
			log.Printf("Failed to save overdue flips for order %s: %v", order.ID.Hex(), err)
			continue
		}
		flipped += n
	}
	if err := cursor.Err(); err != nil {
		log.Printf("Overdue sweep cursor error: %v", err)
	}

	log.Printf("Overdue sweep flipped %d installments", flipped)
}

// SendDailySummary aggregates today's numbers and mails them to
// ADMIN_EMAIL, or just logs them when no admin address is configured.
func (s *Scheduler) SendDailySummary() {
	now := time.Now().In(s.loc)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	newOrders, err := s.OrderCollection.CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": startOfDay}})
	if err != nil {
		log.Printf("Daily summary order count failed: %v", err)
		return
	}

	overdue, err := s.countInstallments(ctx, bson.M{"installments.status": models.InstallmentOverdue})
	if err != nil {
		log.Printf("Daily summary overdue count failed: %v", err)
		return
	}

	dueToday, err := s.sumDueBetween(ctx, startOfDay, startOfDay.AddDate(0, 0, 1))
	if err != nil {
		log.Printf("Daily summary due amount failed: %v", err)
		return
	}

	log.Printf("Daily summary: %d new orders, %d overdue installments, Rs %.2f due today", newOrders, overdue, dueToday)

	if s.adminEmail == "" {
		return
	}
	if err := s.EmailService.SendDailySummary(s.adminEmail, now, newOrders, overdue, dueToday); err != nil {
		log.Printf("Failed to send daily summary to %s: %v", s.adminEmail, err)
	}
}

// countInstallments counts embedded installments matching the unwound filter.
func (s *Scheduler) countInstallments(ctx context.Context, match bson.M) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$installments"}},
		{{Key: "$match", Value: match}},
		{{Key: "$count", Value: "count"}},
	}
	cursor, err := s.OrderCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Count int64 `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Count, nil
}

// sumDueBetween totals unpaid installment amounts due in [from, to).
func (s *Scheduler) sumDueBetween(ctx context.Context, from, to time.Time) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$installments"}},
		{{Key: "$match", Value: bson.M{
			"installments.status":   bson.M{"$ne": models.InstallmentPaid},
			"installments.due_date": bson.M{"$gte": from, "$lt": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$installments.amount"},
		}}},
	}
	cursor, err := s.OrderCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

func (s *Scheduler) recipient(ctx context.Context, order models.Order) string {
	if order.GuestEmail != "" {
		return order.GuestEmail
	}
	var user models.User
	if err := s.UserCollection.FindOne(ctx, bson.M{"_id": order.UserID}).Decode(&user); err != nil {
		return ""
	}
	return user.Email
}
