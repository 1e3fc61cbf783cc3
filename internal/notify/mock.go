package notify

// Record is one captured notification.
type Record struct {
	Level   string
	Message string
	Action  *Action
}

// Mock captures notifications for tests. AutoAccept invokes every action
// immediately, simulating a user who always selects it.
type Mock struct {
	Records    []Record
	AutoAccept bool
}

func (m *Mock) Info(msg string, action *Action)    { m.record("info", msg, action) }
func (m *Mock) Warning(msg string, action *Action) { m.record("warning", msg, action) }
func (m *Mock) Error(msg string, action *Action)   { m.record("error", msg, action) }

func (m *Mock) record(level, msg string, action *Action) {
	m.Records = append(m.Records, Record{Level: level, Message: msg, Action: action})
	if m.AutoAccept && action != nil {
		action.Invoke()
	}
}

// Messages returns just the message strings, in delivery order.
func (m *Mock) Messages() []string {
	out := make([]string, len(m.Records))
	for i, r := range m.Records {
		out[i] = r.Message
	}
	return out
}
