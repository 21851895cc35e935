package surveilans

// ProvinceCode is the portal's code for DKI Jakarta. Every request carries it.
const ProvinceCode = "1"

// Regency is a kabupaten/kota of DKI Jakarta, keyed by portal code.
type Regency string

const (
	RegencyCentral  Regency = "1"
	RegencyNorth    Regency = "2"
	RegencyWest     Regency = "3"
	RegencySouth    Regency = "4"
	RegencyEast     Regency = "5"
	RegencyThousand Regency = "6"
)

var regencies = [...]Regency{RegencyCentral, RegencyNorth, RegencyWest, RegencySouth, RegencyEast, RegencyThousand}

func (r Regency) Code() string { return string(r) }

func (r Regency) Label() string {
	switch r {
	case RegencyCentral:
		return "Jakarta Pusat"
	case RegencyNorth:
		return "Jakarta Utara"
	case RegencyWest:
		return "Jakarta Barat"
	case RegencySouth:
		return "Jakarta Selatan"
	case RegencyEast:
		return "Jakarta Timur"
	case RegencyThousand:
		return "Kab. Kep. Seribu"
	}
	return string(r)
}

// Status is the patient status filter (status penderita).
type Status string

const (
	StatusInCare    Status = "SAKIT"
	StatusRecovered Status = "SEMBUH"
	StatusDeceased  Status = "MATI"
)

var statuses = [...]Status{StatusInCare, StatusRecovered, StatusDeceased}

func (s Status) Code() string { return string(s) }

func (s Status) Label() string {
	switch s {
	case StatusInCare:
		return "Masih Dirawat"
	case StatusRecovered:
		return "Sembuh"
	case StatusDeceased:
		return "Meninggal"
	}
	return string(s)
}

// AgeGroup is the golongan umur filter.
type AgeGroup string

var ageGroups = [...]AgeGroup{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}

var ageGroupLabels = map[AgeGroup]string{
	"1":  "< 1 TH",
	"2":  "1 - 4 TH",
	"3":  "5 - 9 TH",
	"4":  "10 - 14 TH",
	"5":  "15 - 19 TH",
	"6":  "20 - 44 TH",
	"7":  "45 - 54 TH",
	"8":  "55 - 64 TH",
	"9":  "65 - 74 TH",
	"10": "75+ TH",
}

func (a AgeGroup) Code() string { return string(a) }

func (a AgeGroup) Label() string {
	if l, ok := ageGroupLabels[a]; ok {
		return l
	}
	return string(a)
}

// Sex is the jenis kelamin filter.
type Sex string

const (
	SexMale   Sex = "L"
	SexFemale Sex = "P"
)

var sexes = [...]Sex{SexMale, SexFemale}

func (s Sex) Code() string { return string(s) }

func (s Sex) Label() string {
	switch s {
	case SexMale:
		return "Laki-Laki"
	case SexFemale:
		return "Perempuan"
	}
	return string(s)
}

// The enumerations below return fresh slices in portal order.

func Regencies() []Regency { return append([]Regency(nil), regencies[:]...) }

func Statuses() []Status { return append([]Status(nil), statuses[:]...) }

func AgeGroups() []AgeGroup { return append([]AgeGroup(nil), ageGroups[:]...) }

func Sexes() []Sex { return append([]Sex(nil), sexes[:]...) }
