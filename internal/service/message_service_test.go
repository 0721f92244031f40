package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"casebridge/internal/mocks"
	"casebridge/internal/models"
	"casebridge/internal/repositories"
)

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []models.Message
	receipts []int
}

func (b *recordingBroadcaster) BroadcastNewMessage(msg models.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
}

func (b *recordingBroadcaster) BroadcastReadReceipt(caseID, messageID int, readAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receipts = append(b.receipts, messageID)
}

func intPtr(v int) *int { return &v }

func assignedCase() models.Case {
	return models.Case{ID: 1, CaseNumber: "CB202500001", ClientID: 10, LawyerID: intPtr(20)}
}

func TestSendMessagePersistsAndBroadcasts(t *testing.T) {
	caseRepo := new(mocks.CaseRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	broadcaster := &recordingBroadcaster{}
	svc := NewMessageService(caseRepo, messageRepo, broadcaster)

	caseRepo.On("GetCase", mock.Anything, 1).Return(assignedCase(), nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m models.Message) bool {
		return m.CaseID == 1 && m.SenderID == 10 && m.ReceiverID == 20 &&
			m.MessageType == models.MessageTypeText && m.Content == "Hello" && !m.ReadStatus
	})).Return(models.Message{ID: 7, CaseID: 1, SenderID: 10, ReceiverID: 20, Content: "Hello"}, nil).Once()

	msg, err := svc.SendMessage(context.Background(), SendMessageInput{
		CaseID:     1,
		SenderID:   10,
		ReceiverID: 20,
		Content:    "  Hello  ",
	})

	require.NoError(t, err)
	assert.Equal(t, 7, msg.ID)
	assert.False(t, msg.ReadStatus)
	require.Len(t, broadcaster.messages, 1)
	assert.Equal(t, 7, broadcaster.messages[0].ID)
	caseRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestSendMessageSenderNotParticipant(t *testing.T) {
	caseRepo := new(mocks.CaseRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	svc := NewMessageService(caseRepo, messageRepo, nil)

	caseRepo.On("GetCase", mock.Anything, 1).Return(assignedCase(), nil).Once()

	_, err := svc.SendMessage(context.Background(), SendMessageInput{
		CaseID:     1,
		SenderID:   99,
		ReceiverID: 10,
		Content:    "hi",
	})

	require.ErrorIs(t, err, ErrAccessDenied)
	messageRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestSendMessageCaseWithoutLawyer(t *testing.T) {
	caseRepo := new(mocks.CaseRepositoryMock)
	svc := NewMessageService(caseRepo, new(mocks.MessageRepositoryMock), nil)

	caseRepo.On("GetCase", mock.Anything, 1).
		Return(models.Case{ID: 1, ClientID: 10}, nil).Once()

	_, err := svc.SendMessage(context.Background(), SendMessageInput{
		CaseID:     1,
		SenderID:   10,
		ReceiverID: 20,
		Content:    "hi",
	})

	require.ErrorIs(t, err, ErrValidation)
}

func TestSendMessageReceiverMustBeCounterpart(t *testing.T) {
	caseRepo := new(mocks.CaseRepositoryMock)
	svc := NewMessageService(caseRepo, new(mocks.MessageRepositoryMock), nil)

	caseRepo.On("GetCase", mock.Anything, 1).Return(assignedCase(), nil).Twice()

	_, err := svc.SendMessage(context.Background(), SendMessageInput{
		CaseID: 1, SenderID: 10, ReceiverID: 10, Content: "hi",
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.SendMessage(context.Background(), SendMessageInput{
		CaseID: 1, SenderID: 10, ReceiverID: 55, Content: "hi",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestSendMessageEmptyTextNoFile(t *testing.T) {
	caseRepo := new(mocks.CaseRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	svc := NewMessageService(caseRepo, messageRepo, nil)

	caseRepo.On("GetCase", mock.Anything, 1).Return(assignedCase(), nil).Once()

	_, err := svc.SendMessage(context.Background(), SendMessageInput{
		CaseID: 1, SenderID: 10, ReceiverID: 20, Content: "   ",
	})

	require.ErrorIs(t, err, ErrValidation)
	messageRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestSendFileMessageValidation(t *testing.T) {
	tests := []struct {
		name  string
		input SendMessageInput
	}{
		{"missing file reference", SendMessageInput{
			MessageType: models.MessageTypeFile, FileName: "a.pdf", FileSize: 100,
		}},
		{"missing file name", SendMessageInput{
			MessageType: models.MessageTypeFile, FileURL: "ref", FileSize: 100,
		}},
		{"missing size", SendMessageInput{
			MessageType: models.MessageTypeFile, FileURL: "ref", FileName: "a.pdf",
		}},
		{"oversized", SendMessageInput{
			MessageType: models.MessageTypeFile, FileURL: "ref", FileName: "a.pdf", FileSize: MaxFileBytes + 1,
		}},
		{"disallowed type", SendMessageInput{
			MessageType: models.MessageTypeFile, FileURL: "ref", FileName: "a.exe", FileSize: 100,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caseRepo := new(mocks.CaseRepositoryMock)
			messageRepo := new(mocks.MessageRepositoryMock)
			svc := NewMessageService(caseRepo, messageRepo, nil)
			caseRepo.On("GetCase", mock.Anything, 1).Return(assignedCase(), nil).Once()

			in := tt.input
			in.CaseID = 1
			in.SenderID = 10
			in.ReceiverID = 20

			_, err := svc.SendMessage(context.Background(), in)
			require.ErrorIs(t, err, ErrValidation)
			messageRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
		})
	}
}

func TestSendFileMessageSuccess(t *testing.T) {
	caseRepo := new(mocks.CaseRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	svc := NewMessageService(caseRepo, messageRepo, &recordingBroadcaster{})

	caseRepo.On("GetCase", mock.Anything, 1).Return(assignedCase(), nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m models.Message) bool {
		return m.MessageType == models.MessageTypeFile &&
			m.FileName != nil && *m.FileName == "contract.pdf" &&
			m.FileSize != nil && *m.FileSize == 2048
	})).Return(models.Message{ID: 8, CaseID: 1, MessageType: models.MessageTypeFile}, nil).Once()

	_, err := svc.SendMessage(context.Background(), SendMessageInput{
		CaseID:      1,
		SenderID:    10,
		ReceiverID:  20,
		MessageType: models.MessageTypeFile,
		FileName:    "contract.pdf",
		FileURL:     "blob://opaque-ref",
		FileSize:    2048,
	})

	require.NoError(t, err)
	messageRepo.AssertExpectations(t)
}

func TestListMessagesAccessDeniedNotEmpty(t *testing.T) {
	caseRepo := new(mocks.CaseRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	svc := NewMessageService(caseRepo, messageRepo, nil)

	caseRepo.On("GetCase", mock.Anything, 1).Return(assignedCase(), nil).Once()
	caseRepo.On("IsParticipant", mock.Anything, 1, 99).Return(false, nil).Once()

	msgs, err := svc.ListMessages(context.Background(), 1, 99, 50, 0)

	require.ErrorIs(t, err, ErrAccessDenied)
	assert.Nil(t, msgs)
	messageRepo.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListMessagesClampsBounds(t *testing.T) {
	caseRepo := new(mocks.CaseRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	svc := NewMessageService(caseRepo, messageRepo, nil)

	caseRepo.On("GetCase", mock.Anything, 1).Return(assignedCase(), nil).Once()
	caseRepo.On("IsParticipant", mock.Anything, 1, 10).Return(true, nil).Once()
	messageRepo.On("ListMessages", mock.Anything, 1, MaxListLimit, 0).
		Return([]models.Message{}, nil).Once()

	_, err := svc.ListMessages(context.Background(), 1, 10, 99999, -5)

	require.NoError(t, err)
	messageRepo.AssertExpectations(t)
}

func TestListMessagesCaseNotFound(t *testing.T) {
	caseRepo := new(mocks.CaseRepositoryMock)
	svc := NewMessageService(caseRepo, new(mocks.MessageRepositoryMock), nil)

	caseRepo.On("GetCase", mock.Anything, 404).
		Return(models.Case{}, repositories.ErrCaseNotFound).Once()

	_, err := svc.ListMessages(context.Background(), 404, 10, 10, 0)
	require.ErrorIs(t, err, repositories.ErrCaseNotFound)
}

func TestMarkReadTransitionsOnceAndBroadcasts(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	broadcaster := &recordingBroadcaster{}
	svc := NewMessageService(new(mocks.CaseRepositoryMock), messageRepo, broadcaster)

	readAt := time.Now()
	messageRepo.On("GetMessage", mock.Anything, 7).
		Return(models.Message{ID: 7, CaseID: 1, ReceiverID: 20}, nil).Once()
	messageRepo.On("MarkRead", mock.Anything, 7).
		Return(models.Message{ID: 7, CaseID: 1, ReceiverID: 20, ReadStatus: true, ReadAt: &readAt}, true, nil).Once()

	msg, err := svc.MarkRead(context.Background(), 7, 20)

	require.NoError(t, err)
	assert.True(t, msg.ReadStatus)
	require.NotNil(t, msg.ReadAt)
	assert.Equal(t, []int{7}, broadcaster.receipts)
	messageRepo.AssertExpectations(t)
}

func TestMarkReadIdempotent(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	broadcaster := &recordingBroadcaster{}
	svc := NewMessageService(new(mocks.CaseRepositoryMock), messageRepo, broadcaster)

	readAt := time.Now().Add(-time.Hour)
	alreadyRead := models.Message{ID: 7, CaseID: 1, ReceiverID: 20, ReadStatus: true, ReadAt: &readAt}
	messageRepo.On("GetMessage", mock.Anything, 7).Return(alreadyRead, nil).Once()

	msg, err := svc.MarkRead(context.Background(), 7, 20)

	require.NoError(t, err)
	assert.Equal(t, readAt, *msg.ReadAt)
	assert.Empty(t, broadcaster.receipts)
	messageRepo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}

func TestMarkReadOnlyReceiver(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	svc := NewMessageService(new(mocks.CaseRepositoryMock), messageRepo, nil)

	messageRepo.On("GetMessage", mock.Anything, 7).
		Return(models.Message{ID: 7, CaseID: 1, SenderID: 10, ReceiverID: 20}, nil).Once()

	_, err := svc.MarkRead(context.Background(), 7, 10)
	require.ErrorIs(t, err, ErrAccessDenied)
	messageRepo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}

func TestMarkReadNotFound(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	svc := NewMessageService(new(mocks.CaseRepositoryMock), messageRepo, nil)

	messageRepo.On("GetMessage", mock.Anything, 404).
		Return(models.Message{}, repositories.ErrMessageNotFound).Once()

	_, err := svc.MarkRead(context.Background(), 404, 20)
	require.ErrorIs(t, err, repositories.ErrMessageNotFound)
}

func TestUnreadCountsPassthrough(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	svc := NewMessageService(new(mocks.CaseRepositoryMock), messageRepo, nil)

	messageRepo.On("UnreadCounts", mock.Anything, 20).
		Return([]models.UnreadCount{{CaseID: 1, Count: 3}}, nil).Once()

	counts, err := svc.UnreadCounts(context.Background(), 20)

	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 3, counts[0].Count)
}
