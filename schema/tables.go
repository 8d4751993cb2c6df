package schema

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/facilimate/tquery/types"
)

// Dictionary identifiers of the lookup tables constraining dict columns.
const (
	DictMeetingStatus    = "meetingStatus"
	DictMeetingType      = "meetingType"
	DictAttendanceType   = "attendanceType"
	DictAttendanceStatus = "attendanceStatus"
	DictClientType       = "clientType"
)

// Users is the catalog of the plain users view.
func Users() Schema {
	return New("users", "users").
		Column("id", TypeUUID).
		Column("name", TypeString).
		Column("email", TypeStringNullable).
		Column("hasEmailVerified", TypeBool).
		ColumnAs("hasPassword", TypeIsNotNull, "password_hash").
		Column("passwordExpireAt", TypeDatetimeNullable).
		Column("createdAt", TypeDatetime).
		Column("updatedAt", TypeDatetime).
		Suggest(
			[]string{"name", "email", "createdAt"},
			[]types.SortColumn{{Type: "column", Column: "name", Dir: types.SortAsc}},
		).
		MustBuild()
}

// Clients is the users view narrowed to facility clients, with client data
// joined in. The facility scope itself arrives as the intrinsic filter on the
// facility.id column.
func Clients() Schema {
	return Extend("clients", Users()).
		Join(Join{From: "users", Table: "members", Alias: "members", Key: "user_id", Inv: true}).
		Join(Join{From: "members", Table: "clients", Alias: "client", Key: "client_id"}).
		Restrict("members.client_id is not null").
		Joined(TypeUUID, "members", "facility_id", "facility.id").
		JoinedDict(TypeDict, DictClientType, "client", "type_dict_id", "client.typeDictId").
		Joined(TypeDateNullable, "client", "birth_date", "client.birthDate").
		Joined(TypeStringNullable, "client", "contact_phone", "client.contactPhone").
		Joined(TypeTextNullable, "client", "notes", "client.notes").
		MustBuild()
}

// Meetings is the catalog of the facility meetings view.
func Meetings() Schema {
	return New("meetings", "meetings").
		Column("id", TypeUUID).
		ColumnAs("facility.id", TypeUUID, "facility_id").
		Column("date", TypeDate).
		Column("startDayminute", TypeInt).
		Column("durationMinutes", TypeInt).
		Dict("statusDictId", TypeDict, DictMeetingStatus).
		Dict("typeDictId", TypeDict, DictMeetingType).
		Column("isRemote", TypeBool).
		Column("notes", TypeTextNullable).
		Column("fromMeetingId", TypeUUIDNullable).
		Column("createdAt", TypeDatetime).
		Column("updatedAt", TypeDatetime).
		CustomFilter("attendant", "id", meetingAttendantFilter).
		Suggest(
			[]string{"date", "startDayminute", "durationMinutes", "statusDictId", "typeDictId"},
			[]types.SortColumn{
				{Type: "column", Column: "date", Dir: types.SortDesc},
				{Type: "column", Column: "startDayminute", Dir: types.SortAsc},
			},
		).
		MustBuild()
}

// MeetingAttendants is the meetings view with one row per attendant.
func MeetingAttendants() Schema {
	return Extend("meeting_attendants", Meetings()).
		Join(Join{From: "meetings", Table: "meeting_attendants", Alias: "meeting_attendants", Key: "meeting_id", Inv: true}).
		Join(Join{From: "meeting_attendants", Table: "users", Alias: "attendant", Key: "user_id"}).
		Joined(TypeUUID, "meeting_attendants", "user_id", "attendant.userId").
		Joined(TypeString, "attendant", "name", "attendant.name").
		JoinedDict(TypeDict, DictAttendanceType, "meeting_attendants", "attendance_type_dict_id", "attendant.attendanceTypeDictId").
		JoinedDict(TypeDict, DictAttendanceStatus, "meeting_attendants", "attendance_status_dict_id", "attendant.attendanceStatusDictId").
		MustBuild()
}

type meetingAttendantParams struct {
	UserID string `mapstructure:"userId"`
}

// meetingAttendantFilter matches meetings attended by a given user.
func meetingAttendantFilter(bind Binder, params map[string]interface{}) (string, error) {
	var decoded meetingAttendantParams
	if err := mapstructure.Decode(params, &decoded); err != nil {
		return "", fmt.Errorf("attendant filter params: %w", err)
	}
	if err := validateUUID(decoded.UserID); err != nil {
		return "", fmt.Errorf("attendant filter userId: %w", err)
	}
	return fmt.Sprintf(
		"exists (select 1 from meeting_attendants a where a.meeting_id = meetings.id and a.user_id = %s)",
		bind(decoded.UserID)), nil
}

// Registry holds the queryable entity catalogs by name.
type Registry struct {
	schemas map[string]Schema
	names   []string
}

// NewRegistry builds a registry from the given schemas.
func NewRegistry(schemas ...Schema) *Registry {
	r := &Registry{schemas: make(map[string]Schema, len(schemas))}
	for _, s := range schemas {
		if _, ok := r.schemas[s.Name]; ok {
			continue
		}
		r.schemas[s.Name] = s
		r.names = append(r.names, s.Name)
	}
	return r
}

// DefaultRegistry returns the registry of all built-in entity views.
func DefaultRegistry() *Registry {
	return NewRegistry(Users(), Clients(), Meetings(), MeetingAttendants())
}

// Get returns the named schema.
func (r *Registry) Get(name string) (Schema, bool) {
	s, ok := r.schemas[name]
	return s, ok
}

// Names lists the registered entity names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}
