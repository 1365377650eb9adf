package domain

// Member represents user's presence in a room.
// No transport or lifecycle logic here.
type Member struct {
	User *User
	Room RoomID
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User) *Member {
	return &Member{User: user}
}

func (m *Member) InRoom(room RoomID) bool {
	return m.Room != "" && m.Room == room
}
