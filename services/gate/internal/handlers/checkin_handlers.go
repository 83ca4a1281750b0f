package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/diagnosis/smartgate/pkg/response"
	"github.com/diagnosis/smartgate/services/gate/internal/domain"
	"github.com/google/uuid"
)

const multipartOverhead = 1 << 20

// CheckIn handles the public visitor form.
func (h *Handlers) CheckIn(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	photo, err := h.readPhoto(r)
	if err != nil {
		response.FieldError(w, "photo", err.Error())
		return
	}

	form := domain.CheckInForm{
		Name:          r.FormValue("name"),
		HouseNumber:   r.FormValue("house_number"),
		PhoneNumber:   r.FormValue("phone_number"),
		PlateNumber:   r.FormValue("plate_number"),
		IsOwnerUnpaid: formBool(r, "is_owner_unpaid"),
		IsVendor:      formBool(r, "is_vendor"),
		IsOther:       formBool(r, "is_other"),
		OtherReason:   r.FormValue("other_reason"),
	}

	receipt, err := h.checkInService.SubmitCheckIn(r.Context(), form, photo)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, receipt)
}

// ReportForcedEntry lets a guard record an entry that bypassed the form.
func (h *Handlers) ReportForcedEntry(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		response.Unauthorized(w, "Authentication required")
		return
	}
	guardID, err := uuid.Parse(claims.Sub)
	if err != nil {
		response.Unauthorized(w, "Invalid token subject")
		return
	}

	if err := h.parseMultipart(w, r); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	photo, err := h.readPhoto(r)
	if err != nil {
		response.FieldError(w, "photo", err.Error())
		return
	}

	report := domain.ForcedEntryReport{
		Name:        r.FormValue("name"),
		HouseNumber: r.FormValue("house_number"),
		Notes:       r.FormValue("notes"),
	}

	receipt, err := h.checkInService.ReportForcedEntry(r.Context(), guardID, report, photo)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, receipt)
}

func (h *Handlers) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	limit := h.config.Storage.MaxPhotoBytes + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", limit)
		}
		return errors.New("invalid multipart form")
	}
	return nil
}

// readPhoto returns nil when no photo part was sent; the service reports
// the missing field. Photos are read one byte past the limit so the
// service can reject oversized files.
func (h *Handlers) readPhoto(r *http.Request) (*domain.Photo, error) {
	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New("could not read photo")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.config.Storage.MaxPhotoBytes+1))
	if err != nil {
		return nil, errors.New("could not read photo")
	}
	return &domain.Photo{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
