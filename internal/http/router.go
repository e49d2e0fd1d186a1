package http

import (
	"net/http"
	"strings"
)

// RouterConfig wires handlers into the mux. Nil handlers leave their routes unregistered.
type RouterConfig struct {
	Auth         *AuthHandler
	Directory    *DirectoryHandler
	Meetings     *MeetingHandler
	Notes        *NotesHandler
	Availability *AvailabilityHandler
	Metrics      http.Handler
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w, http.MethodGet, http.MethodHead)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	})

	if cfg.Metrics != nil {
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				methodNotAllowed(w, http.MethodGet, http.MethodHead)
				return
			}
			cfg.Metrics.ServeHTTP(w, r)
		})
	}

	if cfg.Auth != nil {
		mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Register(w, r)
		})
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.CreateSession(w, r)
		})
		mux.HandleFunc("/sessions/current", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Auth.DeleteCurrentSession(w, r)
		})
	}

	if cfg.Directory != nil {
		mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Directory.Me(w, r)
		})
		mux.HandleFunc("/me/role", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				methodNotAllowed(w, http.MethodPut)
				return
			}
			cfg.Directory.UpdateRole(w, r)
		})
		registerRoster(mux, "/mentors", cfg.Directory.ListMentors, cfg.Directory.GetMentor)
		registerRoster(mux, "/professors", cfg.Directory.ListProfessors, cfg.Directory.GetProfessor)
		registerRoster(mux, "/students", cfg.Directory.ListStudents, cfg.Directory.GetStudent)
	}

	if cfg.Meetings != nil {
		mux.HandleFunc("/meetings", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Meetings.List(w, r)
			case http.MethodPost:
				cfg.Meetings.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/meetings/", func(w http.ResponseWriter, r *http.Request) {
			routeMeeting(w, r, cfg.Meetings, cfg.Notes)
		})
	}

	if cfg.Notes != nil {
		mux.HandleFunc("/notes", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Notes.MentorMeetings(w, r)
		})
	}

	if cfg.Availability != nil {
		mux.HandleFunc("/availability", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Availability.Windows(w, r)
		})
		mux.HandleFunc("/availability/occurrences", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Availability.Occurrences(w, r)
		})
		mux.HandleFunc("/slots", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Availability.Slots(w, r)
		})
		mux.HandleFunc("/slots/check", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Availability.Check(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func registerRoster(mux *http.ServeMux, prefix string, list http.HandlerFunc, get func(http.ResponseWriter, *http.Request, string)) {
	mux.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		list(w, r)
	})
	mux.HandleFunc(prefix+"/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, prefix+"/")
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		get(w, r, id)
	})
}

// routeMeeting dispatches the GET-only /meetings/{upcoming,stats,search,analytics,schedule}
// collections and /meetings/{id}[/action].
func routeMeeting(w http.ResponseWriter, r *http.Request, meetings *MeetingHandler, notes *NotesHandler) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/meetings/"), "/")
	switch rest {
	case "":
		http.NotFound(w, r)
		return
	case "upcoming":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		meetings.Upcoming(w, r)
		return
	case "stats", "search", "analytics", "schedule":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		switch rest {
		case "stats":
			meetings.Stats(w, r)
		case "search":
			meetings.Search(w, r)
		case "analytics":
			meetings.Analytics(w, r)
		default:
			meetings.Schedule(w, r)
		}
		return
	}

	rawID, action, _ := strings.Cut(rest, "/")
	id, err := parseID(rawID)
	if err != nil {
		meetings.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}
	r = r.WithContext(ContextWithMeetingID(r.Context(), id))

	switch action {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		meetings.Get(w, r)
	case "cancel", "complete", "feedback":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		switch action {
		case "cancel":
			meetings.Cancel(w, r)
		case "complete":
			meetings.Complete(w, r)
		default:
			meetings.Feedback(w, r)
		}
	case "notes":
		if notes == nil {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			notes.Get(w, r)
		case http.MethodPut:
			notes.Save(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPut)
		}
	default:
		http.NotFound(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
