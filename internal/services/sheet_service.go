package services

import (
	"bytes"
	"database/sql"
	"fmt"
	"strings"

	intconfig "backoffice/internal/config"
	"backoffice/internal/domain"
	"backoffice/internal/domain/models"
	"backoffice/internal/repositories"
	"backoffice/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// SheetService renders the printable dispatch order sheet handed to the
// crew before departure.
type SheetService struct {
	Query       DispatchQueryService
	DriverRepo  repositories.DriverRepo
	VehicleRepo repositories.VehicleRepo
	RequestID   string
	DB          *sql.DB
}

func (s SheetService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s SheetService) query() DispatchQueryService {
	if s.Query.DB != nil {
		return s.Query
	}
	return DispatchQueryService{DB: s.db()}
}

func (s SheetService) drivers() repositories.DriverRepo {
	if s.DriverRepo.DB != nil {
		return s.DriverRepo
	}
	return repositories.DriverRepo{DB: s.db()}
}

func (s SheetService) vehicles() repositories.VehicleRepo {
	if s.VehicleRepo.DB != nil {
		return s.VehicleRepo
	}
	return repositories.VehicleRepo{DB: s.db()}
}

type sheetData struct {
	Trip       models.Trip
	Booking    models.Booking
	MainDriver string
	CoDriver   string
	Vehicle    string
	Plate      string
}

// GenerateOrderSheet builds the PDF for an assigned or ongoing trip.
func (s SheetService) GenerateOrderSheet(tripID domain.ID) ([]byte, string, error) {
	detail, err := s.query().GetTripDetail(tripID)
	if err != nil {
		return nil, "", err
	}
	if detail.Trip.Status != models.TripAssigned && detail.Trip.Status != models.TripOngoing {
		return nil, "", domain.NotDispatchableError{TripID: tripID, Reason: "order sheet requires an assigned crew"}
	}

	data := sheetData{Trip: detail.Trip, Booking: detail.Booking}
	for _, a := range detail.Assignments {
		switch {
		case a.Kind == models.AssignDriver && a.Role == models.RoleCoDriver:
			if d, err := s.drivers().GetDriver(s.db(), a.ResourceID); err == nil {
				data.CoDriver = d.FullName
			}
		case a.Kind == models.AssignDriver:
			if d, err := s.drivers().GetDriver(s.db(), a.ResourceID); err == nil {
				data.MainDriver = d.FullName
			}
		case a.Kind == models.AssignVehicle:
			if v, err := s.vehicles().GetVehicle(s.db(), a.ResourceID); err == nil {
				data.Vehicle = v.Model
				data.Plate = v.LicensePlate
			}
		}
	}

	utils.LogEvent(s.RequestID, "docs", "order_sheet", fmt.Sprintf("trip_id=%d", tripID))
	return buildOrderSheetPDF(data)
}

func buildOrderSheetPDF(d sheetData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Dispatch Order", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "DISPATCH ORDER")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Trip        : #%d (%s)", d.Trip.ID, d.Trip.Status),
		fmt.Sprintf("Route       : %s", orDash(d.Trip.RouteLabel())),
		fmt.Sprintf("Departure   : %s", utils.FormatDateTime(d.Trip.StartTime)),
		fmt.Sprintf("Return      : %s", utils.FormatDateTime(d.Trip.EndTime)),
		fmt.Sprintf("Distance    : %.0f km", d.Trip.DistanceKm),
		fmt.Sprintf("Customer    : %s", orDash(d.Booking.CustomerName)),
		fmt.Sprintf("Phone       : %s", orDash(d.Booking.CustomerPhone)),
		fmt.Sprintf("Main Driver : %s", orDash(d.MainDriver)),
	}
	if d.CoDriver != "" {
		lines = append(lines, fmt.Sprintf("Co-Driver   : %s", d.CoDriver))
	}
	lines = append(lines,
		fmt.Sprintf("Vehicle     : %s", orDash(d.Vehicle)),
		fmt.Sprintf("Plate       : %s", orDash(d.Plate)),
		fmt.Sprintf("Booking     : #%d", d.Booking.ID),
	)
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "The crew must carry this sheet for the whole trip and report any incident to dispatch immediately.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("DISPATCH_%d.pdf", d.Trip.ID)
	return buf.Bytes(), filename, nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
