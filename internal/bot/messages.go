package bot

// Message catalog for the two supported chat languages. Templates carry
// fmt verbs; the formatting helpers own the argument order.

const (
	langEN = "en"
	langRU = "ru"
)

type messageKey string

const (
	msgNoStats         messageKey = "no_stats"
	msgUserStats       messageKey = "user_stats"
	msgRules           messageKey = "rules"
	msgAdminsOnly      messageKey = "admins_only"
	msgRatingsEnabled  messageKey = "ratings_enabled"
	msgRatingsDisabled messageKey = "ratings_disabled"
	msgGreeting        messageKey = "greeting"
	msgTopEmpty        messageKey = "top_empty"
	msgTopHeader       messageKey = "top_header"
	msgTopRow          messageKey = "top_row"
	msgZeroPing        messageKey = "zero_ping"
	msgZeroPoints      messageKey = "zero_points"
	msgZeroCircles     messageKey = "zero_circles"
	msgLangChanged     messageKey = "lang_changed"
	msgLangInvalid     messageKey = "lang_invalid"
)

var translations = map[string]map[messageKey]string{
	langEN: {
		msgNoStats:   "No numbers yet. Drop a circle (video note) and step into the cypher.",
		msgUserStats: "<b>%s</b>\nPoints: <b>%d</b>\nCircles: %d\nReactions: %d",
		msgRules: "<b>House Rules</b>\n" +
			"Circle (video note): +%d point(s)\n" +
			"Reaction on a circle: +%d point(s)\n" +
			"Auto rating interval: %s\n" +
			"Zero criteria: %s\n" +
			"Zero ping limit: %d\n" +
			"Top limit: %d",
		msgAdminsOnly:      "Hold up. Admins only handle this.",
		msgRatingsEnabled:  "Auto ratings back on. Board stays hot.",
		msgRatingsDisabled: "Auto ratings paused. Silence before the drop.",
		msgGreeting: "<b>Circles Ranking Bot</b>\n" +
			"Mic is live. Game is on.\n\n" +
			"Commands on deck:\n" +
			"  /top — who runs the board\n" +
			"  /me — your own numbers\n" +
			"  /rules — how points get made\n" +
			"  /lang — switch chat language\n" +
			"  /enable_ratings — turn the board on (admins)\n" +
			"  /disable_ratings — kill the board (admins)",
		msgTopEmpty:  "Board’s clean. First circle sets the tone.",
		msgTopHeader: "<b>The Board</b>",
		msgTopRow:    "%d. %s — <b>%d</b> pts : %d / %d",
		msgZeroPing: "<b>Callout</b>: still quiet over here.\n" +
			"Condition: <b>%s</b>\n" +
			"Names: %s\n" +
			"Drop a circle. Make noise. Get on the board.",
		msgZeroPoints:  "0 points",
		msgZeroCircles: "0 circles",
		msgLangChanged: "Language switched to %s.",
		msgLangInvalid: "Wrong code. Supported: en, ru",
	},
	langRU: {
		msgNoStats:   "Пока пусто. Запиши круг и зайди в сайфер.",
		msgUserStats: "<b>%s</b>\nОчки: <b>%d</b>\nКруги: %d\nРеакции: %d",
		msgRules: "<b>Правила района</b>\n" +
			"Круг (видеосообщение): +%d очко(ов)\n" +
			"Реакция на круг: +%d очко(ов)\n" +
			"Интервал авто-рейтинга: %s\n" +
			"Критерий нуля: %s\n" +
			"Лимит упоминаний: %d\n" +
			"Лимит топа: %d",
		msgAdminsOnly:      "Стоп. Только админы решают.",
		msgRatingsEnabled:  "Авто-рейтинги включены. Доска в игре.",
		msgRatingsDisabled: "Авто-рейтинги на паузе. Перед битом тишина.",
		msgGreeting: "<b>Бот Рейтинга Кругов</b>\n" +
			"Микрофон включён. Игра началась.\n\n" +
			"Команды:\n" +
			"  /top — кто держит верх\n" +
			"  /me — твои цифры\n" +
			"  /rules — как фармятся очки\n" +
			"  /lang — сменить язык чата\n" +
			"  /enable_ratings — включить рейтинг (админы)\n" +
			"  /disable_ratings — выключить рейтинг (админы)",
		msgTopEmpty:  "Доска чистая. Первый круг задаёт ритм.",
		msgTopHeader: "<b>Лучшие MC по версии вселенной</b>",
		msgTopRow:    "%d. %s — <b>%d</b> очков : %d / %d",
		msgZeroPing: "<b>Вызов</b>: тут пока тишина.\n" +
			"Условие: <b>%s</b>\n" +
			"Игроки: %s\n" +
			"Записывай круг. Шуми. Залетай в топ.",
		msgZeroPoints:  "0 очков",
		msgZeroCircles: "0 кругов",
		msgLangChanged: "Язык переключён на %s.",
		msgLangInvalid: "Неверный код. Доступно: en, ru",
	},
}

// supportedLanguage reports whether the code has a catalog.
func supportedLanguage(lang string) bool {
	_, ok := translations[lang]

	return ok
}

// message returns the template for the key, falling back to English for
// unknown languages.
func message(lang string, key messageKey) string {
	catalog, ok := translations[lang]
	if !ok {
		catalog = translations[langEN]
	}

	return catalog[key]
}
