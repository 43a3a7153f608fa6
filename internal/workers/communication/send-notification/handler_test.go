package sendnotification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	awsclient "job-matcher/internal/common/aws"
	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/models"
)

var fixedNow = time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)

type fakeEmail struct {
	sent []*ses.SendEmailInput
	err  error
}

func (f *fakeEmail) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.sent = append(f.sent, in)
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("mail-1")}, nil
}

type fakeSMS struct {
	sent []*sns.PublishInput
	err  error
}

func (f *fakeSMS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.sent = append(f.sent, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("sms-1")}, nil
}

func testConfig() *Config {
	return &Config{
		Timeout:      time.Second,
		EmailEnabled: true,
		FromEmail:    "noreply@example.com",
		SMSEnabled:   true,
		SMSTypes:     []string{models.NotificationApplicationOffer},
	}
}

func newHandler(t *testing.T, cfg *Config, email awsclient.EmailSender, sms awsclient.SMSSender) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandler(cfg, db, email, sms, logger.NewTestLogger(t), nil)
	h.now = func() time.Time { return fixedNow }
	return h, mock
}

func offerInput() *Input {
	return &Input{
		NotificationID: "n-1",
		UserID:         "user-1",
		Type:           models.NotificationApplicationOffer,
		Title:          "Offer for Backend Engineer",
		Body:           "You received an offer.",
		Data:           map[string]interface{}{"applicationId": "app-1"},
	}
}

func expectContact(mock sqlmock.Sqlmock, email, phone interface{}) {
	mock.ExpectQuery(`SELECT email, phone FROM users`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone"}).AddRow(email, phone))
}

func expectStore(mock sqlmock.Sqlmock, status string, inserted bool) {
	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs("n-1", "user-1", models.NotificationApplicationOffer, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), StatusPending, fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"status", "inserted"}).AddRow(status, inserted))
}

func TestHandler_Execute_EmailAndSMS(t *testing.T) {
	email, sms := &fakeEmail{}, &fakeSMS{}
	h, mock := newHandler(t, testConfig(), email, sms)

	expectContact(mock, "jane@example.com", "+4915112345678")
	expectStore(mock, StatusPending, true)
	mock.ExpectExec(`UPDATE notifications SET status`).
		WithArgs("n-1", StatusSent).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), offerInput())

	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.Status)
	assert.True(t, out.EmailSent)
	assert.True(t, out.SMSSent)

	require.Len(t, email.sent, 1)
	assert.Equal(t, "noreply@example.com", aws.ToString(email.sent[0].Source))
	assert.Equal(t, []string{"jane@example.com"}, email.sent[0].Destination.ToAddresses)
	assert.Equal(t, "Offer for Backend Engineer", aws.ToString(email.sent[0].Message.Subject.Data))

	require.Len(t, sms.sent, 1)
	assert.Equal(t, "+4915112345678", aws.ToString(sms.sent[0].PhoneNumber))
	assert.Equal(t, "Offer for Backend Engineer: You received an offer.", aws.ToString(sms.sent[0].Message))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_SMSOnlyForConfiguredTypes(t *testing.T) {
	email, sms := &fakeEmail{}, &fakeSMS{}
	h, mock := newHandler(t, testConfig(), email, sms)

	in := offerInput()
	in.Type = models.NotificationNewMatch

	expectContact(mock, "jane@example.com", "+4915112345678")
	mock.ExpectQuery(`INSERT INTO notifications`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "inserted"}).AddRow(StatusPending, true))
	mock.ExpectExec(`UPDATE notifications SET status`).
		WithArgs("n-1", StatusSent).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), in)

	require.NoError(t, err)
	assert.True(t, out.EmailSent)
	assert.False(t, out.SMSSent)
	assert.Empty(t, sms.sent)
}

func TestHandler_Execute_ChannelFailureRecordedNotReturned(t *testing.T) {
	email := &fakeEmail{err: errors.New("MessageRejected")}
	cfg := testConfig()
	cfg.SMSEnabled = false
	h, mock := newHandler(t, cfg, email, nil)

	expectContact(mock, "jane@example.com", nil)
	expectStore(mock, StatusPending, true)
	mock.ExpectExec(`UPDATE notifications SET status`).
		WithArgs("n-1", StatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), offerInput())

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	assert.False(t, out.EmailSent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ChannelsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.EmailEnabled, cfg.SMSEnabled = false, false
	h, mock := newHandler(t, cfg, nil, nil)

	expectContact(mock, "jane@example.com", "+4915112345678")
	expectStore(mock, StatusPending, true)
	mock.ExpectExec(`UPDATE notifications SET status`).
		WithArgs("n-1", StatusDisabled).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), offerInput())

	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, out.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_UnknownUser(t *testing.T) {
	email := &fakeEmail{}
	h, mock := newHandler(t, testConfig(), email, nil)

	mock.ExpectQuery(`SELECT email, phone FROM users`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone"}))

	out, err := h.Execute(context.Background(), offerInput())

	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, out.Status)
	assert.Empty(t, email.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Deliver_RedeliveryDoesNotResend(t *testing.T) {
	email := &fakeEmail{}
	h, mock := newHandler(t, testConfig(), email, nil)

	expectContact(mock, "jane@example.com", nil)
	expectStore(mock, StatusSent, false)

	n := models.Notification{
		ID:     "n-1",
		UserID: "user-1",
		Type:   models.NotificationApplicationOffer,
		Title:  "Offer",
	}
	require.NoError(t, h.Deliver(context.Background(), n))
	assert.Empty(t, email.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Deliver_StorageFailureIsReturned(t *testing.T) {
	h, mock := newHandler(t, testConfig(), &fakeEmail{}, nil)

	expectContact(mock, "jane@example.com", nil)
	mock.ExpectQuery(`INSERT INTO notifications`).WillReturnError(errors.New("connection reset"))

	err := h.Deliver(context.Background(), models.Notification{
		ID: "n-1", UserID: "user-1", Type: models.NotificationApplicationOffer,
	})

	assert.ErrorIs(t, err, apperrors.ErrDatabaseInsertFailed)
	assert.True(t, apperrors.AsStandardError(err).Retryable)
}

func TestHandler_Execute_RequiresRecipientAndType(t *testing.T) {
	h, _ := newHandler(t, testConfig(), nil, nil)

	_, err := h.Execute(context.Background(), &Input{Type: "new_match"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSMSText_Truncates(t *testing.T) {
	msg := smsText(models.Notification{Title: "Update", Body: strings.Repeat("x", 300)})

	assert.Len(t, []rune(msg), maxSMSLength)
	assert.True(t, strings.HasSuffix(msg, "..."))
}
