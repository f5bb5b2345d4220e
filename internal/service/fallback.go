// Package service 包含了应用的业务逻辑层。
package service

import (
	"math/rand"
	"regexp"
)

// fallbackTheme 将一个话题的匹配模式与该话题的候选回复绑定。
type fallbackTheme struct {
	pattern   *regexp.Regexp
	responses []string
}

// fallbackThemes 按固定优先级排列，首个命中的主题生效。
// 匹配是大小写不敏感的子串搜索；关键词重叠时（如同时提到 fever 和
// stress）以排在前面的主题为准。
var fallbackThemes = []fallbackTheme{
	{
		pattern: regexp.MustCompile(`(?i)headache|migraine`),
		responses: []string{
			"Headaches can have many causes, including tension, dehydration, or lack of sleep. Try resting in a quiet, dark room and staying hydrated. If your headache is severe, sudden, or accompanied by other symptoms like fever or vision changes, please see a doctor promptly.",
			"For occasional headaches, over-the-counter pain relief and rest often help. Keeping a headache diary can help identify triggers. Recurring or worsening headaches should be evaluated by a healthcare professional.",
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)fever|temperature`),
		responses: []string{
			"A fever is often a sign that your body is fighting an infection. Rest, fluids, and monitoring your temperature are important. If your fever exceeds 39°C (102.2°F), lasts more than three days, or comes with severe symptoms, seek medical attention.",
			"For mild fever, stay hydrated and rest. Light clothing and a comfortable room temperature can help. A very high or persistent fever, especially in children or the elderly, warrants prompt medical evaluation.",
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)cold|flu|cough`),
		responses: []string{
			"Most colds and mild flu cases resolve with rest, fluids, and time. Warm liquids can soothe a sore throat and cough. If symptoms last beyond 10 days, or you experience difficulty breathing or chest pain, please consult a doctor.",
			"To recover from a cold or flu, prioritize sleep and hydration. Honey may ease a cough for adults. See a healthcare professional if you have a high fever, shortness of breath, or symptoms that worsen after initially improving.",
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)diet|nutrition`),
		responses: []string{
			"A balanced diet rich in vegetables, fruits, whole grains, and lean proteins supports overall health. Try to limit processed foods and added sugar. For a personalized nutrition plan, consider consulting a registered dietitian.",
			"Good nutrition starts with variety: aim for colorful vegetables, adequate protein, and healthy fats. Staying hydrated matters too. A dietitian or your doctor can help tailor dietary advice to your specific health needs.",
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)exercise|fitness`),
		responses: []string{
			"Regular physical activity — about 150 minutes of moderate exercise per week — benefits both physical and mental health. Start gradually and choose activities you enjoy. Check with your doctor before beginning a new program if you have existing health conditions.",
			"A mix of cardio, strength training, and flexibility work is ideal for general fitness. Listen to your body and allow rest days for recovery. If you experience pain (not just soreness) during exercise, consult a healthcare professional.",
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)sleep|insomnia`),
		responses: []string{
			"Good sleep hygiene helps: keep a consistent schedule, avoid screens before bed, and keep your bedroom cool and dark. Most adults need 7-9 hours. Persistent insomnia that affects your daily life should be discussed with a doctor.",
			"If you struggle to sleep, try limiting caffeine after midday and establishing a relaxing bedtime routine. Avoid long daytime naps. Chronic sleep problems can have underlying causes worth evaluating with a healthcare professional.",
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)stress|anxiety|depression`),
		responses: []string{
			"Stress and anxiety are common and manageable. Techniques like deep breathing, regular exercise, and maintaining social connections can help. If these feelings persist or interfere with daily life, please reach out to a mental health professional.",
			"Taking care of your mental health matters. Mindfulness, adequate sleep, and talking to someone you trust can make a difference. If you experience ongoing low mood or anxiety, a doctor or therapist can offer effective support and treatment.",
		},
	},
}

// genericFallbackResponses 在没有任何主题命中时使用。
var genericFallbackResponses = []string{
	"I apologize, but I'm currently unable to process your request due to high demand. Please try again in a few moments. For urgent medical concerns, please contact a healthcare professional directly.",
	"Our AI service is temporarily busy. Your question is important — please try again shortly. Remember, for any serious or emergency symptoms, seek immediate medical attention.",
	"I'm sorry, I can't generate a detailed answer right now. Please retry in a little while. In the meantime, a pharmacist or your doctor can help with specific medical questions.",
	"The service is experiencing heavy load at the moment. Please resend your message soon. If your concern is urgent, don't wait — contact a medical professional.",
	"Apologies — I couldn't reach the medical knowledge service just now. Please try again later. For anything serious, always consult a qualified healthcare provider.",
}

// SelectFallbackResponse 根据用户消息选择一条本地生成的兜底回复。
// 该函数是纯本地逻辑：不访问网络，永不失败。
func SelectFallbackResponse(message string) string {
	for _, theme := range fallbackThemes {
		if theme.pattern.MatchString(message) {
			return theme.responses[rand.Intn(len(theme.responses))]
		}
	}
	return genericFallbackResponses[rand.Intn(len(genericFallbackResponses))]
}
