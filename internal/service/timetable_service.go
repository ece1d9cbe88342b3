package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/acadops/timetable-api/internal/models"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
	"github.com/acadops/timetable-api/pkg/export"
)

type timetableViewReader interface {
	ListDetails(ctx context.Context) ([]models.AssignmentDetail, error)
	ListDetailsByGroup(ctx context.Context, groupID string) ([]models.AssignmentDetail, error)
	ListDetailsByTeacher(ctx context.Context, teacherID string) ([]models.AssignmentDetail, error)
	Generation(ctx context.Context) (int64, error)
}

// TimetableService serves compiled timetable views and exports.
type TimetableService struct {
	assignments timetableViewReader
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewTimetableService constructs the timetable view service.
func NewTimetableService(assignments timetableViewReader, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		assignments: assignments,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// List returns the full compiled timetable with the generation it belongs to.
func (s *TimetableService) List(ctx context.Context) ([]models.AssignmentDetail, int64, error) {
	details, err := s.assignments.ListDetails(ctx)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "list timetable")
	}
	generation, err := s.assignments.Generation(ctx)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "read timetable generation")
	}
	return details, generation, nil
}

// ListByGroup returns one group's timetable.
func (s *TimetableService) ListByGroup(ctx context.Context, groupID string) ([]models.AssignmentDetail, error) {
	details, err := s.assignments.ListDetailsByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "list group timetable")
	}
	return details, nil
}

// ListByTeacher returns one teacher's timetable.
func (s *TimetableService) ListByTeacher(ctx context.Context, teacherID string) ([]models.AssignmentDetail, error) {
	details, err := s.assignments.ListDetailsByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "list teacher timetable")
	}
	return details, nil
}

// ExportCSV renders the full timetable as CSV.
func (s *TimetableService) ExportCSV(ctx context.Context) ([]byte, error) {
	details, err := s.assignments.ListDetails(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "list timetable")
	}
	payload, err := s.csv.Render(export.TimetableDataset(details))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render timetable csv")
	}
	return payload, nil
}

// ExportPDF renders the full timetable as a tabular PDF.
func (s *TimetableService) ExportPDF(ctx context.Context) ([]byte, error) {
	details, err := s.assignments.ListDetails(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, "list timetable")
	}
	payload, err := s.pdf.Render(export.TimetableDataset(details), "Weekly Timetable")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render timetable pdf")
	}
	return payload, nil
}
