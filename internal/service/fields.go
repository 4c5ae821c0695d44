package service

// Field names one piece of registration data. The string value doubles as
// the callback-payload suffix for edit actions, so it never changes once
// buttons are in the wild.
type Field string

const (
	FieldFullName     Field = "full_name"
	FieldGroupNumber  Field = "group_number"
	FieldFaculty      Field = "faculty"
	FieldMobileNumber Field = "mobile_number"
	FieldStudNumber   Field = "stud_number"
	FieldFormEduc     Field = "form_educ"
	FieldScholarship  Field = "scholarship"
)

// fieldOrder is the linear collection order of the form.
var fieldOrder = []Field{
	FieldFullName,
	FieldGroupNumber,
	FieldFaculty,
	FieldMobileNumber,
	FieldStudNumber,
	FieldFormEduc,
	FieldScholarship,
}

// faculties maps display labels to the short codes stored in the database.
var faculties = map[string]string{
	"ФКСиС": "FKSiS",
	"ФИТУ":  "FITU",
	"ФКП":   "FKP",
	"ФИБ":   "FIB",
	"ИЭФ":   "IEF",
	"ФРЭ":   "FRE",
}

var facultyLabels = map[string]string{
	"FKSiS": "ФКСиС",
	"FITU":  "ФИТУ",
	"FKP":   "ФКП",
	"FIB":   "ФИБ",
	"IEF":   "ИЭФ",
	"FRE":   "ФРЭ",
}

// FacultyLabel returns the display label for a stored code.
func FacultyLabel(code string) string {
	if label, ok := facultyLabels[code]; ok {
		return label
	}
	return "—"
}

var fieldTitles = map[Field]string{
	FieldFullName:     "ФИО",
	FieldGroupNumber:  "Группа",
	FieldFaculty:      "Факультет",
	FieldMobileNumber: "Телефон",
	FieldStudNumber:   "Студ. билет",
	FieldFormEduc:     "Форма обучения",
	FieldScholarship:  "Стипендия",
}

var fieldPrompts = map[Field]string{
	FieldFullName:     "Введи своё ФИО полностью (Пример - Иванова Кира Андреевна):",
	FieldGroupNumber:  "Теперь введи номер группы (ровно 6 цифр)",
	FieldFaculty:      "Выбери свой факультет:",
	FieldMobileNumber: "Введи свой номер мобильного телефона\n(в формате %s#########)",
	FieldStudNumber:   "Теперь введи номер студенческого билета (8 цифр)",
	FieldFormEduc:     "Выбери форму обучения:",
	FieldScholarship:  "Получаешь стипендию?",
}

// fieldKeyboards names the fixed-choice keyboard shown with each prompt.
var fieldKeyboards = map[Field]Keyboard{
	FieldFullName:     KeyboardRemove,
	FieldGroupNumber:  KeyboardNone,
	FieldFaculty:      KeyboardFaculty,
	FieldMobileNumber: KeyboardRemove,
	FieldStudNumber:   KeyboardNone,
	FieldFormEduc:     KeyboardFormEduc,
	FieldScholarship:  KeyboardYesNo,
}
