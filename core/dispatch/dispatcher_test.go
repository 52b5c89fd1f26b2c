package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"refurbot/core/menu"
)

type fakeStore struct {
	messages []recordedMessage
	services []recordedService
	fail     error
}

type recordedMessage struct {
	senderID string
	text     string
	now      time.Time
}

type recordedService struct {
	senderID string
	service  string
	now      time.Time
}

func (f *fakeStore) RecordMessage(_ context.Context, senderID, text string, now time.Time) error {
	if f.fail != nil {
		return f.fail
	}
	f.messages = append(f.messages, recordedMessage{senderID, text, now})
	return nil
}

func (f *fakeStore) RecordService(_ context.Context, senderID, service string, now time.Time) error {
	if f.fail != nil {
		return f.fail
	}
	f.services = append(f.services, recordedService{senderID, service, now})
	return nil
}

type fakeSender struct {
	sent []sentMessage
	fail error
}

type sentMessage struct {
	to   string
	body string
}

func (f *fakeSender) SendText(_ context.Context, to, body string) error {
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sentMessage{to, body})
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestHandleMenuRequest(t *testing.T) {
	st := &fakeStore{}
	sn := &fakeSender{}
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	d := New(st, sn).WithClock(fixedClock(now))

	res := d.Handle(context.Background(), "447900000001", "Hi, can I see the menu?")

	require.True(t, res.Sent())
	require.Equal(t, menu.ActionMainMenu, res.Action.Kind)
	require.True(t, strings.HasPrefix(res.Reply, "📋 *Refurbyte Main Menu*"))
	for _, svc := range menu.Catalog {
		require.Contains(t, res.Reply, svc.MenuLabel)
	}

	require.Len(t, st.messages, 1)
	require.Equal(t, "Hi, can I see the menu?", st.messages[0].text)
	require.Equal(t, now, st.messages[0].now)
	require.Empty(t, st.services, "menu request must not record a service")

	require.Len(t, sn.sent, 1)
	require.Equal(t, "447900000001", sn.sent[0].to)
	require.Equal(t, res.Reply, sn.sent[0].body)
}

func TestHandleServiceSelection(t *testing.T) {
	st := &fakeStore{}
	sn := &fakeSender{}
	d := New(st, sn)

	res := d.Handle(context.Background(), "447900000002", "id like option 2 please")

	require.True(t, res.Sent())
	require.Equal(t, menu.ActionService, res.Action.Kind)
	require.Equal(t, "2", res.Action.Key)
	require.True(t, strings.HasPrefix(res.Reply, "📂 *PC Repairs & Diagnostics*"))
	require.True(t, strings.HasSuffix(res.Reply, "Reply 'menu' to return."))

	require.Len(t, st.services, 1)
	require.Equal(t, "PC Repairs & Diagnostics", st.services[0].service)
}

func TestHandleUnrecognizedText(t *testing.T) {
	st := &fakeStore{}
	sn := &fakeSender{}
	d := New(st, sn)

	res := d.Handle(context.Background(), "447900000003", "hello there")

	require.True(t, res.Sent())
	require.Equal(t, menu.ActionUnrecognized, res.Action.Kind)
	require.Contains(t, res.Reply, "Welcome to Refurbyte")
	require.Len(t, st.messages, 1)
	require.Empty(t, st.services)
}

func TestHandleStoreFailureStillSends(t *testing.T) {
	st := &fakeStore{fail: errors.New("disk full")}
	sn := &fakeSender{}
	d := New(st, sn)

	res := d.Handle(context.Background(), "447900000004", "2")

	require.True(t, res.Sent(), "send must proceed despite store failure")
	require.Len(t, sn.sent, 1)
	require.True(t, strings.HasPrefix(sn.sent[0].body, "📂 *PC Repairs & Diagnostics*"))
}

func TestHandleSendFailureSurfaced(t *testing.T) {
	st := &fakeStore{}
	sendErr := errors.New("delivery timeout")
	sn := &fakeSender{fail: sendErr}
	d := New(st, sn)

	res := d.Handle(context.Background(), "447900000005", "menu")

	require.False(t, res.Sent())
	require.ErrorIs(t, res.SendErr, sendErr)
	require.Len(t, st.messages, 1, "store write happens before the failed send")
}

func TestHandleDuplicateDeliveryIsSafe(t *testing.T) {
	st := &fakeStore{}
	sn := &fakeSender{}
	d := New(st, sn)

	first := d.Handle(context.Background(), "447900000006", "3")
	second := d.Handle(context.Background(), "447900000006", "3")

	require.Equal(t, first.Reply, second.Reply)
	require.Len(t, st.messages, 2)
	require.Len(t, st.services, 2)
	require.Equal(t, st.services[0].service, st.services[1].service)
}
