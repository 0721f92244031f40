package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"casebridge/internal/models"
	"casebridge/internal/repositories"
)

type CaseRepositoryMock struct {
	mock.Mock
}

func (m *CaseRepositoryMock) CreateCase(ctx context.Context, clientID int, caseType, title, description, priority string) (models.Case, error) {
	args := m.Called(ctx, clientID, caseType, title, description, priority)
	var c models.Case
	if val := args.Get(0); val != nil {
		c = val.(models.Case)
	}
	return c, args.Error(1)
}

func (m *CaseRepositoryMock) GetCase(ctx context.Context, caseID int) (models.Case, error) {
	args := m.Called(ctx, caseID)
	var c models.Case
	if val := args.Get(0); val != nil {
		c = val.(models.Case)
	}
	return c, args.Error(1)
}

func (m *CaseRepositoryMock) ListCasesForUser(ctx context.Context, userID int) ([]models.Case, error) {
	args := m.Called(ctx, userID)
	var cases []models.Case
	if val := args.Get(0); val != nil {
		cases = val.([]models.Case)
	}
	return cases, args.Error(1)
}

func (m *CaseRepositoryMock) IsParticipant(ctx context.Context, caseID int, userID int) (bool, error) {
	args := m.Called(ctx, caseID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *CaseRepositoryMock) UpdateStatus(ctx context.Context, caseID int, status string) error {
	args := m.Called(ctx, caseID, status)
	return args.Error(0)
}

func (m *CaseRepositoryMock) AssignLawyer(ctx context.Context, caseID int, lawyerID int) error {
	args := m.Called(ctx, caseID, lawyerID)
	return args.Error(0)
}

func (m *CaseRepositoryMock) AddRemark(ctx context.Context, caseID int, userID int, text string) (models.Remark, error) {
	args := m.Called(ctx, caseID, userID, text)
	var remark models.Remark
	if val := args.Get(0); val != nil {
		remark = val.(models.Remark)
	}
	return remark, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var created models.Message
	if val := args.Get(0); val != nil {
		created = val.(models.Message)
	}
	return created, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, caseID int, limit, offset int) ([]models.Message, error) {
	args := m.Called(ctx, caseID, limit, offset)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, messageID int) (models.Message, bool, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Bool(1), args.Error(2)
}

func (m *MessageRepositoryMock) UnreadCounts(ctx context.Context, userID int) ([]models.UnreadCount, error) {
	args := m.Called(ctx, userID)
	var counts []models.UnreadCount
	if val := args.Get(0); val != nil {
		counts = val.([]models.UnreadCount)
	}
	return counts, args.Error(1)
}

var _ repositories.CaseRepository = (*CaseRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
