package model

import "time"

// Frequency is the dosing schedule label of a medication.
type Frequency string

const (
	OnceDaily       Frequency = "once_daily"
	TwiceDaily      Frequency = "twice_daily"
	ThreeTimesDaily Frequency = "three_times_daily"
	FourTimesDaily  Frequency = "four_times_daily"
	Every8Hours     Frequency = "every_8_hours"
	Every12Hours    Frequency = "every_12_hours"
	AsNeeded        Frequency = "as_needed"
)

// Frequencies lists every accepted tag in display order.
var Frequencies = []Frequency{
	OnceDaily, TwiceDaily, ThreeTimesDaily, FourTimesDaily,
	Every8Hours, Every12Hours, AsNeeded,
}

// DosesPerDay is the number of doses assumed for adherence scoring.
// as_needed is scored as one dose a day, as is any unknown tag.
func (f Frequency) DosesPerDay() int {
	switch f {
	case TwiceDaily, Every12Hours:
		return 2
	case ThreeTimesDaily, Every8Hours:
		return 3
	case FourTimesDaily:
		return 4
	default:
		return 1
	}
}

// Valid reports whether f is one of Frequencies.
func (f Frequency) Valid() bool {
	for _, v := range Frequencies {
		if f == v {
			return true
		}
	}
	return false
}

// Medication is a row of the `medications` table. A medication belongs to
// exactly one user and is only visible to that user.
//
// Fields:
//
//	ID           – primary key identifier.
//	UserID       – owning user.
//	Name         – medication name.
//	Dosage       – free text dosage, e.g. "200mg".
//	Frequency    – dosing schedule tag.
//	Instructions – optional free text.
//	CreatedAt    – creation timestamp.
//	UpdatedAt    – last update timestamp.
type Medication struct {
	ID           uint64    // medications.id
	UserID       uint64    // medications.user_id
	Name         string    // medications.name
	Dosage       string    // medications.dosage
	Frequency    Frequency // medications.frequency
	Instructions *string   // medications.instructions (nullable)
	CreatedAt    time.Time // medications.created_at
	UpdatedAt    time.Time // medications.updated_at
}

// MedicationLog records that a medication was taken on a calendar day.
// There is at most one row per (MedicationID, TakenDate); marking the same
// day again overwrites TakenAt and Notes.
type MedicationLog struct {
	ID           uint64    // medication_logs.id
	MedicationID uint64    // medication_logs.medication_id
	UserID       uint64    // medication_logs.user_id (copy of the medication owner)
	TakenDate    Date      // medication_logs.taken_date
	TakenAt      time.Time // medication_logs.taken_at
	Notes        *string   // medication_logs.notes (nullable)
}
