package main

import "libraryapi/internal/book"

type sampleBook struct {
	title    string
	author   string
	isbn     string
	category string
	year     int
	copies   int
}

var sampleBooks = []sampleBook{
	{"Clean Code", "Robert C. Martin", "9780132350884", "Software Engineering", 2008, 5},
	{"The Pragmatic Programmer", "Andrew Hunt, David Thomas", "9780135957059", "Software Engineering", 2019, 3},
	{"Design Patterns", "Erich Gamma, Richard Helm, Ralph Johnson, John Vlissides", "9780201633610", "Software Engineering", 1994, 2},
	{"Atomic Habits", "James Clear", "9780735211292", "Self-Help", 2018, 4},
	{"Sapiens", "Yuval Noah Harari", "9780062316097", "History", 2015, 3},
}

func (s sampleBook) toBook() book.Book {
	isbn := s.isbn
	year := s.year
	return book.Book{
		Title:         s.title,
		Author:        s.author,
		ISBN:          &isbn,
		Category:      s.category,
		PublishedYear: &year,
		TotalCopies:   s.copies,
	}
}
