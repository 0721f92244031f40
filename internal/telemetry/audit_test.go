package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"casebridge/internal/mocks"
	"casebridge/internal/telemetry"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(publisher, "audit.casebridge", "casebridge", "test")

	publisher.On("Publish", mock.Anything, "audit.casebridge", mock.MatchedBy(func(e telemetry.AuditEnvelope) bool {
		return e.EventType == "audit_log" &&
			e.Service == "casebridge" &&
			e.Environment == "test" &&
			e.RequestID == "req-1" &&
			e.UserID != nil && *e.UserID == "10" &&
			e.Payload.Action == "message_sent" &&
			e.Payload.CaseID == 1 &&
			e.SchemaVersion == 1
	})).Return(nil).Once()

	emitter.Emit(context.Background(), "message_sent", 1, "", "req-1", 10)

	publisher.AssertExpectations(t)
}

func TestEmitAnonymousEventOmitsUserID(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(publisher, "audit.casebridge", "casebridge", "test")

	publisher.On("Publish", mock.Anything, "audit.casebridge", mock.MatchedBy(func(e telemetry.AuditEnvelope) bool {
		return e.UserID == nil && e.Payload.Action == "audit_test"
	})).Return(nil).Once()

	emitter.Emit(context.Background(), "audit_test", 0, "", "req-2", 0)

	publisher.AssertExpectations(t)
}

func TestEmitSwallowsPublisherErrors(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(publisher, "audit.casebridge", "casebridge", "test")

	publisher.On("Publish", mock.Anything, "audit.casebridge", mock.Anything).
		Return(errors.New("broker down")).Once()

	require.NotPanics(t, func() {
		emitter.Emit(context.Background(), "message_read", 1, "", "req-3", 20)
	})
	publisher.AssertExpectations(t)
}

func TestEmitNilEmitterAndNilPublisherAreNoOps(t *testing.T) {
	var nilEmitter *telemetry.AuditEmitter
	assert.NotPanics(t, func() {
		nilEmitter.Emit(context.Background(), "message_sent", 1, "", "req-4", 10)
	})

	emitter := telemetry.NewAuditEmitter(nil, "audit.casebridge", "casebridge", "test")
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), "message_sent", 1, "", "req-4", 10)
	})
}
