package kyc

import (
	"context"

	"internpay/pkg/errutil"
	"internpay/pkg/repository"
	"internpay/pkg/task"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	node  *snowflake.Node
	asynq task.Enqueuer

	documents repository.Repository[Document]
	trust     repository.Repository[EmployerTrust]
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Node  *snowflake.Node
	Asynq task.Enqueuer
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		node:      p.Node,
		asynq:     p.Asynq,
		documents: repository.ProvideStore[Document](p.DB),
		trust:     repository.ProvideStore[EmployerTrust](p.DB),
	}
}

type SubmitDocumentInput struct {
	EmployerID string `json:"employer_id" binding:"required"`
	DocType    string `json:"doc_type" binding:"required"`
	FileURL    string `json:"file_url" binding:"required"`
}

// SubmitDocument records the document as PENDING and enqueues verification.
// The decision arrives asynchronously; callers poll the document or wait for
// the notification.
func (s *Service) SubmitDocument(ctx context.Context, in SubmitDocumentInput) (*Document, error) {
	doc := &Document{
		ID:         s.node.Generate().String(),
		EmployerID: in.EmployerID,
		DocType:    in.DocType,
		FileURL:    in.FileURL,
		Status:     DocumentPending,
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		zap.L().Error("failed to persist kyc document", zap.Error(err))
		return nil, err
	}

	t, err := NewVerifyTask(VerifyPayload{DocumentID: doc.ID, EmployerID: doc.EmployerID})
	if err != nil {
		return nil, err
	}

	if _, err := s.asynq.Enqueue(t); err != nil {
		zap.L().Error("failed to enqueue kyc verification", zap.Error(err), zap.String("document_id", doc.ID))
		return nil, errutil.BadGateway("verification queue unavailable", errutil.WithErr(err))
	}

	zap.L().Info("kyc document submitted",
		zap.String("document_id", doc.ID),
		zap.String("employer_id", doc.EmployerID),
	)

	return doc, nil
}

func (s *Service) GetDocument(ctx context.Context, id string) (*Document, error) {
	doc, err := s.documents.FindOne(ctx, &Document{ID: id})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errutil.NotFound("kyc document not found")
	}
	return doc, nil
}

func (s *Service) GetTrustScore(ctx context.Context, employerID string) (*EmployerTrust, error) {
	score, err := s.trust.FindOne(ctx, &EmployerTrust{EmployerID: employerID})
	if err != nil {
		return nil, err
	}
	if score == nil {
		return &EmployerTrust{EmployerID: employerID, Score: 0}, nil
	}
	return score, nil
}
