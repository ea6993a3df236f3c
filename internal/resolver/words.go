package resolver

import "strconv"

// quantityWords maps spelled-out Portuguese numbers onto values. Tokens
// arrive already normalized, so no accented forms appear here.
var quantityWords = map[string]int{
	"um": 1, "uma": 1,
	"dois": 2, "duas": 2,
	"tres": 3, "quatro": 4, "cinco": 5,
	"seis": 6, "sete": 7, "oito": 8, "nove": 9, "dez": 10,
}

// ParseQuantity reads a digit or spelled-out number token.
func ParseQuantity(tok string) (int, bool) {
	if n, ok := quantityWords[tok]; ok {
		return n, true
	}
	if n, err := strconv.Atoi(tok); err == nil {
		return n, true
	}
	return 0, false
}

// modifiers start a preparation phrase when followed by an ingredient:
// "sem cebola", "com bacon", "tira o tomate".
var modifiers = map[string]bool{
	"com": true, "sem": true, "tira": true, "tirar": true,
	"remover": true, "mais": true, "mas": true,
	"bastante": true, "menos": true,
}

// additiveLeads signal that the following ingredient is a paid extra,
// not a preparation note. "com" is deliberately absent: "com bacon"
// stays descriptive, "mais bacon" gets priced.
var additiveLeads = map[string]bool{
	"mais": true, "adicional": true, "adicionais": true,
}

// additiveContextWindow is how far back an additive cue still applies to
// a bare ingredient token.
const additiveContextWindow = 3

// ingredients are single words recognized as part of preparation
// phrases and addition requests.
var ingredients = map[string]bool{
	"bacon": true, "cheddar": true, "catupiry": true, "queijo": true,
	"salada": true, "alface": true, "tomate": true, "cebola": true,
	"ovo": true, "frango": true, "calabresa": true, "hamburguer": true,
	"batata": true, "pao": true, "onion": true, "milho": true,
}

// ignored tokens carry no meaning for the cart and never reach a note.
var ignored = map[string]bool{
	"e": true, "quero": true, "queria": true, "gostaria": true,
	"por": true, "favor": true, "me": true, "ve": true, "manda": true,
	"pra": true, "mim": true, "ai": true, "tambem": true,
}

// potatoMarkers flag that the message mentions fries, enabling the
// "com tudo" full-load expansion.
var potatoMarkers = map[string]bool{
	"batata": true, "batatas": true, "palito": true,
	"rustica": true, "rusticas": true, "fritas": true,
}

// fullLoadIngredients are the extras added by "com tudo" on fries, each
// as its own priced line.
var fullLoadIngredients = []string{"bacon", "queijo", "cheddar", "catupiry"}

// additionPhrase is the trigger phrase probed for a priced extra.
func additionPhrase(ingredient string) string {
	return "adicional " + ingredient
}
