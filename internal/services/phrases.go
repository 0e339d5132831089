package services

// Supported assistant languages
const (
	LangEnglish    = "en"
	LangFrench     = "fr"
	LangSpanish    = "es"
	LangVietnamese = "vi"
	LangKorean     = "ko"
	LangRussian    = "ru"
	LangChinese    = "zh"
)

// speechLocales maps our language codes to the provider's speech locales
var speechLocales = map[string]string{
	LangEnglish:    "en-US",
	LangFrench:     "fr-FR",
	LangSpanish:    "es-ES",
	LangVietnamese: "vi-VN",
	LangKorean:     "ko-KR",
	LangRussian:    "ru-RU",
	LangChinese:    "cmn-CN",
}

// Phrase keys
const (
	phraseGreeting     = "greeting"
	phraseAskRoom      = "ask_room"
	phraseAskRequest   = "ask_request"
	phraseConfirm      = "confirm"
	phraseSent         = "sent"
	phraseUrgentSent   = "urgent_sent"
	phraseAnythingElse = "anything_else"
	phraseRetry        = "retry"
	phraseGoodbye      = "goodbye"
	phraseUnavailable  = "unavailable"
	phraseApology      = "apology"
)

// phrasebook holds assistant prompts per language. %s placeholders are filled by the flow.
var phrasebook = map[string]map[string]string{
	LangEnglish: {
		phraseGreeting:     "Welcome to %s. I am your virtual concierge. What is your room number?",
		phraseAskRoom:      "Could you tell me your room number, please?",
		phraseAskRequest:   "How can I help you today?",
		phraseConfirm:      "You asked for: %s, for room %s. Shall I send this to our team?",
		phraseSent:         "Done. Our team has been notified and will take care of it shortly.",
		phraseUrgentSent:   "I have marked this as urgent and alerted our staff right away. Please stay on the line if you can, or call the front desk.",
		phraseAnythingElse: "Is there anything else I can help you with?",
		phraseRetry:        "Sorry, I did not catch that.",
		phraseGoodbye:      "Thank you for calling. Have a wonderful stay. Goodbye.",
		phraseUnavailable:  "Our voice assistant is not available right now. Please call the front desk directly. Goodbye.",
		phraseApology:      "We are sorry, this line is not in service. Goodbye.",
	},
	LangFrench: {
		phraseGreeting:     "Bienvenue à %s. Je suis votre concierge virtuel. Quel est votre numéro de chambre ?",
		phraseAskRoom:      "Pourriez-vous me donner votre numéro de chambre, s'il vous plaît ?",
		phraseAskRequest:   "Comment puis-je vous aider ?",
		phraseConfirm:      "Vous avez demandé : %s, pour la chambre %s. Dois-je transmettre cela à notre équipe ?",
		phraseSent:         "C'est fait. Notre équipe a été prévenue et s'en occupe rapidement.",
		phraseUrgentSent:   "J'ai signalé cette demande comme urgente et prévenu notre personnel immédiatement.",
		phraseAnythingElse: "Puis-je vous aider pour autre chose ?",
		phraseRetry:        "Désolé, je n'ai pas compris.",
		phraseGoodbye:      "Merci de votre appel. Excellent séjour. Au revoir.",
		phraseUnavailable:  "Notre assistant vocal n'est pas disponible pour le moment. Veuillez appeler la réception. Au revoir.",
		phraseApology:      "Nous sommes désolés, cette ligne n'est pas en service. Au revoir.",
	},
	LangSpanish: {
		phraseGreeting:     "Bienvenido a %s. Soy su conserje virtual. ¿Cuál es su número de habitación?",
		phraseAskRoom:      "¿Podría decirme su número de habitación, por favor?",
		phraseAskRequest:   "¿En qué puedo ayudarle?",
		phraseConfirm:      "Usted pidió: %s, para la habitación %s. ¿Envío esto a nuestro equipo?",
		phraseSent:         "Listo. Nuestro equipo ha sido avisado y lo atenderá en breve.",
		phraseUrgentSent:   "He marcado esto como urgente y he avisado a nuestro personal de inmediato.",
		phraseAnythingElse: "¿Puedo ayudarle con algo más?",
		phraseRetry:        "Lo siento, no le entendí.",
		phraseGoodbye:      "Gracias por llamar. Que disfrute su estancia. Adiós.",
		phraseUnavailable:  "Nuestro asistente de voz no está disponible ahora. Por favor llame a recepción. Adiós.",
		phraseApology:      "Lo sentimos, esta línea no está en servicio. Adiós.",
	},
	LangVietnamese: {
		phraseGreeting:     "Chào mừng quý khách đến với %s. Tôi là trợ lý ảo. Xin cho biết số phòng của quý khách?",
		phraseAskRoom:      "Xin quý khách cho biết số phòng?",
		phraseAskRequest:   "Tôi có thể giúp gì cho quý khách?",
		phraseConfirm:      "Quý khách yêu cầu: %s, cho phòng %s. Tôi gửi yêu cầu này cho nhân viên nhé?",
		phraseSent:         "Đã xong. Nhân viên của chúng tôi đã được thông báo.",
		phraseUrgentSent:   "Tôi đã đánh dấu yêu cầu này là khẩn cấp và báo ngay cho nhân viên.",
		phraseAnythingElse: "Quý khách có cần gì thêm không?",
		phraseRetry:        "Xin lỗi, tôi chưa nghe rõ.",
		phraseGoodbye:      "Cảm ơn quý khách đã gọi. Chúc quý khách một kỳ nghỉ vui vẻ. Tạm biệt.",
		phraseUnavailable:  "Trợ lý giọng nói hiện không khả dụng. Vui lòng gọi lễ tân. Tạm biệt.",
		phraseApology:      "Xin lỗi, số này hiện không hoạt động. Tạm biệt.",
	},
	LangKorean: {
		phraseGreeting:     "%s에 오신 것을 환영합니다. 가상 컨시어지입니다. 객실 번호가 어떻게 되십니까?",
		phraseAskRoom:      "객실 번호를 말씀해 주시겠습니까?",
		phraseAskRequest:   "무엇을 도와드릴까요?",
		phraseConfirm:      "요청하신 내용은 %s, 객실 %s 입니다. 직원에게 전달할까요?",
		phraseSent:         "완료되었습니다. 직원에게 전달되었습니다.",
		phraseUrgentSent:   "긴급 요청으로 표시하고 즉시 직원에게 알렸습니다.",
		phraseAnythingElse: "더 도와드릴 일이 있으십니까?",
		phraseRetry:        "죄송합니다, 잘 듣지 못했습니다.",
		phraseGoodbye:      "전화해 주셔서 감사합니다. 즐거운 시간 보내세요. 안녕히 계세요.",
		phraseUnavailable:  "현재 음성 비서를 이용할 수 없습니다. 프런트 데스크로 연락해 주세요.",
		phraseApology:      "죄송합니다, 이 번호는 사용되지 않습니다.",
	},
	LangRussian: {
		phraseGreeting:     "Добро пожаловать в %s. Я ваш виртуальный консьерж. Назовите, пожалуйста, номер вашей комнаты.",
		phraseAskRoom:      "Назовите, пожалуйста, номер вашей комнаты.",
		phraseAskRequest:   "Чем я могу помочь?",
		phraseConfirm:      "Ваш запрос: %s, для номера %s. Передать его нашим сотрудникам?",
		phraseSent:         "Готово. Наши сотрудники уже уведомлены.",
		phraseUrgentSent:   "Я отметил запрос как срочный и немедленно оповестил персонал.",
		phraseAnythingElse: "Могу ли я помочь чем-то ещё?",
		phraseRetry:        "Извините, я не расслышал.",
		phraseGoodbye:      "Спасибо за звонок. Приятного пребывания. До свидания.",
		phraseUnavailable:  "Голосовой помощник сейчас недоступен. Пожалуйста, позвоните на ресепшн. До свидания.",
		phraseApology:      "Извините, этот номер не обслуживается. До свидания.",
	},
	LangChinese: {
		phraseGreeting:     "欢迎致电%s。我是您的虚拟礼宾。请问您的房间号是多少？",
		phraseAskRoom:      "请告诉我您的房间号。",
		phraseAskRequest:   "请问有什么可以帮您？",
		phraseConfirm:      "您的需求是：%s，房间号%s。需要我通知工作人员吗？",
		phraseSent:         "好的，已经通知工作人员，会尽快为您处理。",
		phraseUrgentSent:   "已将此需求标记为紧急，并立即通知了工作人员。",
		phraseAnythingElse: "还有其他需要帮忙的吗？",
		phraseRetry:        "抱歉，我没有听清。",
		phraseGoodbye:      "感谢您的来电，祝您入住愉快，再见。",
		phraseUnavailable:  "语音助手暂时无法使用，请直接联系前台。再见。",
		phraseApology:      "抱歉，该号码暂未开通服务。再见。",
	},
}

// SupportedLanguage reports whether lang has a phrasebook
func SupportedLanguage(lang string) bool {
	_, ok := phrasebook[lang]
	return ok
}

// phrase returns the prompt for key in lang, falling back to English
func phrase(lang, key string) string {
	if p, ok := phrasebook[lang][key]; ok {
		return p
	}
	return phrasebook[LangEnglish][key]
}

// speechLocale returns the provider locale for lang
func speechLocale(lang string) string {
	if l, ok := speechLocales[lang]; ok {
		return l
	}
	return speechLocales[LangEnglish]
}
