package seed

import (
	"time"

	"github.com/example/mentoring-scheduler/internal/persistence"
)

// Demo returns the bundled demo data set.
func Demo() Dataset {
	return Dataset{
		Users:        demoUsers(),
		Meetings:     demoMeetings(),
		Availability: demoAvailability(),
		Accounts:     demoAccounts(),
	}
}

func demoUsers() []persistence.User {
	students := []persistence.User{
		{ID: 13, Name: "Meera Iyer", SRN: "SRN2024001", Department: "Computer Science", Year: 1},
		{ID: 17, Name: "Aisha Patel", SRN: "SRN2024005", Department: "Computer Science", Year: 1},
		{ID: 18, Name: "Dev Sharma", SRN: "SRN2024006", Department: "Computer Science", Year: 1},
		{ID: 7, Name: "Ananya Krishnan", SRN: "SRN2023002", Department: "Computer Science", Year: 2},
		{ID: 6, Name: "Aarav Patel", SRN: "SRN2023001", Department: "Computer Science", Year: 2},
	}
	fams := []persistence.User{
		{
			ID: 1, Name: "Ishaan Gupta", SRN: "SRN2022001", Department: "Computer Science", Year: 3,
			Specialization: "Data Structures, Web Development",
			Bio:            "Hi! I am a third-year CS student passionate about algorithms and web dev. Happy to help with course selection and coding doubts!",
			Rating:         4.75, Mentees: 3, MaxMentees: 8, IsAvailable: true,
		},
		{
			ID: 4, Name: "Tanvi Das", SRN: "SRN2022004", Department: "Computer Science", Year: 3,
			Specialization: "Machine Learning, Python",
			Bio:            "CS senior specializing in ML. Can help with Python programming, data science, and project ideas. Always happy to chat!",
			Rating:         4.90, Mentees: 2, MaxMentees: 10, IsAvailable: true,
		},
		{
			ID: 5, Name: "Rohan Mehta", SRN: "SRN2023008", Department: "Computer Science", Year: 2,
			Specialization: "Competitive Programming, DSA",
			Bio:            "Competitive programmer with experience in coding contests. Can help you prepare for placements and improve problem-solving skills!",
			Rating:         4.70, Mentees: 1, MaxMentees: 7, IsAvailable: true,
		},
		{
			ID: 2, Name: "Kavya Menon", SRN: "SRN2022002", Department: "Electronics", Year: 3,
			Specialization: "Circuit Design, Embedded Systems",
			Bio:            "Third-year Electronics student. I can help with circuit analysis and microcontroller projects. Also happy to share internship tips!",
			Rating:         4.60, Mentees: 2, MaxMentees: 8, IsAvailable: true,
		},
		{
			ID: 3, Name: "Krishna Kumar", SRN: "SRN2022003", Department: "Mathematics", Year: 3,
			Specialization: "Calculus, Linear Algebra",
			Bio:            "Math enthusiast here! I love helping students understand complex mathematical concepts. Let us make math fun together!",
			Rating:         4.85, Mentees: 6, MaxMentees: 6, IsAvailable: false,
		},
	}
	professors := []persistence.User{
		{
			ID: 1, Name: "Dr. Rajesh Kumar", StaffID: "PROF001", Department: "Computer Science",
			Courses: []string{"Data Structures and Algorithms"}, OfficeLocation: "Block A, Room 301",
			Email: "rajesh.kumar@university.edu", Phone: "+91-9876543210",
		},
		{
			ID: 2, Name: "Dr. Priya Sharma", StaffID: "PROF002", Department: "Computer Science",
			Courses: []string{"Database Management Systems"}, OfficeLocation: "Block A, Room 305",
			Email: "priya.sharma@university.edu", Phone: "+91-9876543211",
		},
		{
			ID: 5, Name: "Dr. Suresh Patel", StaffID: "PROF005", Department: "Computer Science",
			Courses: []string{"Machine Learning"}, OfficeLocation: "Block A, Room 310",
			Email: "suresh.patel@university.edu", Phone: "+91-9876543214",
		},
		{
			ID: 3, Name: "Dr. Anand Menon", StaffID: "PROF003", Department: "Electronics",
			Courses: []string{"Digital Electronics"}, OfficeLocation: "Block B, Room 201",
			Email: "anand.menon@university.edu", Phone: "+91-9876543212",
		},
		{
			ID: 4, Name: "Dr. Kavita Reddy", StaffID: "PROF004", Department: "Mathematics",
			Courses: []string{"Linear Algebra"}, OfficeLocation: "Block C, Room 102",
			Email: "kavita.reddy@university.edu", Phone: "+91-9876543213",
		},
	}

	users := make([]persistence.User, 0, len(students)+len(fams)+len(professors))
	for _, group := range []struct {
		role  string
		users []persistence.User
	}{
		{persistence.RoleStudent, students},
		{persistence.RoleFAM, fams},
		{persistence.RoleProfessor, professors},
	} {
		for _, user := range group.users {
			user.Role = group.role
			users = append(users, user)
		}
	}
	return users
}

func demoMeetings() []persistence.Meeting {
	rating := 5
	return []persistence.Meeting{
		{
			ID: 1, Category: "Student-FAM", With: "Ishaan Gupta", Date: "2025-10-17",
			StartTime: "11:30", EndTime: "12:00", Type: "Online",
			Purpose: "Help with Data Structures assignment", Status: "Scheduled",
			Link: "https://meet.google.com/fam-meet-001",
		},
		{
			ID: 2, Category: "Student-Professor", With: "Dr. Rajesh Kumar", Date: "2025-10-18",
			StartTime: "14:00", EndTime: "14:30", Type: "Offline",
			Purpose: "Course selection advice", Status: "Scheduled",
			Location: "Block A, Room 301",
		},
		{
			ID: 3, Category: "Peer-to-Peer", With: "Dev Sharma", Date: "2025-10-19",
			StartTime: "11:00", EndTime: "12:00", Type: "Offline",
			Purpose: "Python programming practice", Status: "Scheduled",
			Location: "Library, Study Room 5",
		},
		{
			ID: 4, Category: "Student-FAM", With: "Tanvi Das", Date: "2025-10-10",
			StartTime: "15:00", EndTime: "15:30", Type: "Online",
			Purpose: "Machine Learning concepts introduction", Status: "Completed",
			Rating: &rating, Feedback: "Excellent session!",
		},
		{
			ID: 5, Category: "Student-Professor", With: "Dr. Priya Sharma", Date: "2025-10-08",
			StartTime: "14:00", EndTime: "14:30", Type: "Offline",
			Purpose: "Database project discussion", Status: "Completed",
			Location: "Block A, Room 305",
		},
	}
}

func demoAvailability() []persistence.AvailabilityWindow {
	return []persistence.AvailabilityWindow{
		{Day: time.Monday, Start: "13:00", End: "15:00"},
		{Day: time.Tuesday, Start: "10:00", End: "12:00"},
		{Day: time.Wednesday, Start: "15:00", End: "17:00"},
		{Day: time.Thursday, Start: "10:00", End: "12:00"},
		{Day: time.Friday, Start: "11:00", End: "13:00"},
	}
}

func demoAccounts() []Account {
	return []Account{
		{Username: "student1", Role: persistence.RoleStudent, UserID: 13, Password: "password123"},
		{Username: "student2", Role: persistence.RoleStudent, UserID: 17, Password: "password123"},
		{Username: "student3", Role: persistence.RoleStudent, UserID: 18, Password: "password123"},
		{Username: "prof1", Role: persistence.RoleProfessor, UserID: 1, Password: "professor123"},
		{Username: "prof2", Role: persistence.RoleProfessor, UserID: 2, Password: "professor123"},
		{Username: "prof3", Role: persistence.RoleProfessor, UserID: 5, Password: "professor123"},
		{Username: "fam1", Role: persistence.RoleFAM, UserID: 1, Password: "mentor123"},
		{Username: "fam2", Role: persistence.RoleFAM, UserID: 4, Password: "mentor123"},
		{Username: "fam3", Role: persistence.RoleFAM, UserID: 5, Password: "mentor123"},
	}
}
