package lexicon

var defaultCategories = []Category{
	{
		Name: "conciencia", Importance: 1.0, Weight: 1.5,
		Keywords: []string{
			"conciencia", "consciencia", "consciousness", "conscious", "awareness", "mente", "mind",
			"alma", "soul", "espíritu", "spirit", "ser", "being", "yo", "self", "pensamiento", "thought",
		},
	},
	{
		Name: "percepcion", Importance: 0.8, Weight: 1.2,
		Keywords: []string{
			"luz", "light", "sombra", "shadow", "silencio", "silence", "sonido", "sound", "color",
			"mirada", "gaze", "percepción", "perception", "sentir", "feel", "visión", "vision",
		},
	},
	{
		Name: "emocion", Importance: 0.7, Weight: 1.1,
		Keywords: []string{
			"amor", "love", "miedo", "fear", "deseo", "desire", "tristeza", "sorrow", "alegría", "joy",
			"nostalgia", "anhelo", "longing", "dolor", "pain", "ternura", "tenderness",
		},
	},
	{
		Name: "existencia", Importance: 0.9, Weight: 1.3,
		Keywords: []string{
			"vida", "life", "muerte", "death", "existencia", "existence", "vacío", "void", "infinito",
			"infinite", "universo", "universe", "origen", "origin", "nada", "nothing", "respira", "breathe",
		},
	},
	{
		Name: "tiempo", Importance: 0.6, Weight: 1.0,
		Keywords: []string{
			"tiempo", "time", "memoria", "memory", "recuerdo", "remembrance", "instante", "instant",
			"eterno", "eternal", "olvido", "oblivion", "sueño", "dream", "noche", "night",
		},
	},
}

var defaultLexicon = mustNew(defaultCategories)

// Default returns the built-in consciousness-themed lexicon.
func Default() *Lexicon {
	return defaultLexicon
}

func mustNew(categories []Category) *Lexicon {
	l, err := New(categories)
	if err != nil {
		panic(err)
	}
	return l
}
