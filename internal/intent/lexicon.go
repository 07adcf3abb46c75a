package intent

// Terms are matched as substrings of the normalized reply, so every entry is
// lowercase and without accents.

var positiveTerms = []string{
	"com certeza", "ate la", "nos vemos", "tudo bem", "pode ser",
	"confirmado", "comparecerei", "perfeito", "tranquilo", "concordo",
	"combinado", "agendado", "positivo", "presente", "estarei",
	"aceito", "fechado", "certeza", "bacana", "obvio", "claro",
	"beleza", "massa", "confirmo", "show", "joia", "certo",
	"sim", "ok", "vou", "blz", "yes", "sure",
	"👍", "✅", "🤝", "😊", "👌", "💪",
}

var negativeTerms = []string{
	"nao posso", "nao consigo", "nao vou poder", "nao da", "nao vai dar",
	"nao tenho como", "impossivel", "inviavel", "indisponivel",
	"nao confirmado", "nao vou confirmar", "nao posso confirmar",
	"nao consigo confirmar", "nao da pra confirmar",

	"agenda cheia", "outro compromisso", "outro dia", "outra data",
	"ocupado", "conflito", "cancelar", "desmarcar", "impedimento",
	"sinto muito", "infelizmente", "lamento",

	"nao posso ir", "nao vou conseguir", "nao estarei disponivel",
	"nao vai ser possivel", "nao tenho disponibilidade",

	"jamais", "nunca", "nao", "nope", "no", "negativo",

	"👎", "❌", "😞", "🚫", "😔",
}

var rescheduleTerms = []string{
	"outro horario", "semana que vem", "mais tarde", "nao sei",
	"disponibilidade", "reagendar", "remarcar", "mudanca",
	"proxima", "possivel", "alterar", "trocar", "duvida",
	"verificar", "conferir", "horarios", "talvez", "quando",
	"incerto", "agenda", "depois",
}

// Whole-message replies this short are trusted far more than a substring hit.
var (
	shortAffirmatives = map[string]struct{}{"sim": {}, "ok": {}, "yes": {}, "claro": {}}
	shortNegatives    = map[string]struct{}{"nao": {}, "no": {}, "nope": {}, "nunca": {}, "jamais": {}}
)

const (
	shortReplyMaxRunes = 5
	shortReplyBonus    = 10
)
