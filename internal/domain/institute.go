package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Location physical centre where batches run.
type Location struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Address string `json:"address" validate:"omitempty,max=255"`
	City    string `json:"city" validate:"required"`
	Phone   string `json:"phone" validate:"omitempty,numeric,min=7,max=15"`
	Status  Status `json:"status" validate:"required,oneof=ACTIVE INACTIVE"`
}

func (l Location) GetID() string { return l.ID }

func (l Location) Columns() []string {
	return []string{"ID", "Name", "City", "Phone", "Status"}
}

func (l Location) Cells() []string {
	return []string{l.ID, l.Name, l.City, l.Phone, l.Status.String()}
}

// Course programme offered by the institute.
type Course struct {
	ID             string          `json:"id,omitempty"`
	Name           string          `json:"name" validate:"required,min=2,max=100"`
	Code           string          `json:"code" validate:"required,alphanum_,min=2,max=20"`
	Description    string          `json:"description" validate:"omitempty,max=500"`
	DurationMonths int             `json:"durationMonths" validate:"required,gte=1,lte=60"`
	Fee            decimal.Decimal `json:"fee" validate:"gte=0"`
	Status         Status          `json:"status" validate:"required,oneof=ACTIVE INACTIVE"`
}

func (c Course) GetID() string { return c.ID }

func (c Course) Columns() []string {
	return []string{"ID", "Code", "Name", "Months", "Fee", "Status"}
}

func (c Course) Cells() []string {
	return []string{c.ID, c.Code, c.Name, strconv.Itoa(c.DurationMonths), money(c.Fee), c.Status.String()}
}

// Batch a scheduled run of a course at a location.
type Batch struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name" validate:"required,min=2,max=100"`
	CourseID     string `json:"courseId" validate:"required"`
	CourseName   string `json:"courseName,omitempty" validate:"-"`
	LocationID   string `json:"locationId" validate:"required"`
	LocationName string `json:"locationName,omitempty" validate:"-"`
	StartDate    Date   `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate      Date   `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Timing       string `json:"timing" validate:"omitempty,max=50"`
	Capacity     int    `json:"capacity" validate:"required,gte=1,lte=500"`
	Status       Status `json:"status" validate:"required,oneof=ACTIVE INACTIVE COMPLETED"`
}

func (b Batch) GetID() string { return b.ID }

func (b Batch) Columns() []string {
	return []string{"ID", "Name", "Course", "Location", "Start", "Capacity", "Status"}
}

func (b Batch) Cells() []string {
	course := b.CourseName
	if course == "" {
		course = b.CourseID
	}
	location := b.LocationName
	if location == "" {
		location = b.LocationID
	}
	return []string{b.ID, b.Name, course, location, b.StartDate.String(), strconv.Itoa(b.Capacity), b.Status.String()}
}

// Student enrolled learner.
type Student struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name" validate:"required,min=2,max=100"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" validate:"required,numeric,min=10,max=15"`
	GuardianName  string `json:"guardianName" validate:"omitempty,max=100"`
	GuardianPhone string `json:"guardianPhone" validate:"omitempty,numeric,min=10,max=15"`
	LocationID    string `json:"locationId" validate:"required"`
	BatchID       string `json:"batchId" validate:"required"`
	AdmissionDate Date   `json:"admissionDate" validate:"required,datetime=2006-01-02"`
	Status        Status `json:"status" validate:"required,oneof=ACTIVE INACTIVE COMPLETED"`
}

func (s Student) GetID() string { return s.ID }

func (s Student) Columns() []string {
	return []string{"ID", "Name", "Phone", "Batch", "Admitted", "Status"}
}

func (s Student) Cells() []string {
	return []string{s.ID, s.Name, s.Phone, s.BatchID, s.AdmissionDate.String(), s.Status.String()}
}
