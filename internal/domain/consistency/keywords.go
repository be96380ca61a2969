package consistency

import (
	"strings"
	"unicode"

	"z-novel-lore-api/internal/domain/entity"
)

// 规则触发词，均为小写整词匹配
var (
	deathWords = wordSet("dies", "died", "die", "killed", "death", "slain", "dead", "perishes", "perished", "murdered", "executed")

	// 以这些前缀开头的词使事件免于死亡检查
	afterlifePrefixes = []string{"resurrect", "reviv", "spirit", "ghost", "flashback", "dream", "undead"}

	// 复活类词语会重置角色的死亡状态
	resurrectionPrefixes = []string{"resurrect", "reviv", "reborn", "raised"}

	learnWords   = wordSet("learn", "learns", "learned", "learnt", "discover", "discovers", "discovered", "realize", "realizes", "realized", "realise", "realises", "realised", "remember", "remembers", "remembered")
	learnPhrases = []string{"finds out", "found out", "find out"}

	conceptWords = wordSet("secret", "truth", "identity", "prophecy", "treasure", "plan", "betrayal", "password", "weakness", "map", "location", "name", "heritage", "curse")

	travelMagicPrefixes = []string{"teleport", "portal", "blink", "warp"}

	levelWords   = []string{"level", "skill", "rank", "tier"}
	advanceWords = wordSet("up", "increase", "increases", "increased", "advance", "advances", "advanced", "unlock", "unlocks", "unlocked", "new", "master", "masters", "mastered", "reaches", "reached", "jumps", "jumped")
	earnedWords  = []string{"gain", "train"}

	currencyWords = wordSet("gold", "silver", "copper", "coins", "coin", "crowns", "credits", "dollars", "marks", "ducats", "platinum")
	acquireWords  = wordSet("gain", "gains", "gained", "receive", "receives", "received", "find", "finds", "found", "earn", "earns", "earned", "win", "wins", "won", "inherit", "inherits", "inherited", "steal", "steals", "stole", "rewarded", "reward", "acquires", "acquired")

	castWords = wordSet("cast", "casts", "casting", "spell", "spells", "conjure", "conjures", "conjured", "summon", "summons", "summoned", "incantation", "ritual")
	costWords = []string{"cost", "price", "exhaust", "drain", "blood", "sacrific", "fatigue", "toll", "weaken", "collapse", "pay", "paid", "mana"}
)

// emotion 情绪类别与极性
type emotion struct {
	category string
	positive bool
}

var emotionWords = map[string]emotion{
	"joy": {"joy", true}, "joyful": {"joy", true}, "happy": {"joy", true}, "happiness": {"joy", true},
	"elated": {"joy", true}, "laughs": {"joy", true}, "celebrates": {"joy", true}, "delighted": {"joy", true},
	"love": {"love", true}, "loves": {"love", true}, "adores": {"love", true},
	"hope": {"hope", true}, "hopeful": {"hope", true}, "relieved": {"calm", true}, "calm": {"calm", true}, "serene": {"calm", true},
	"grief": {"sadness", false}, "grieves": {"sadness", false}, "sad": {"sadness", false}, "sorrow": {"sadness", false},
	"despair": {"sadness", false}, "weeps": {"sadness", false}, "cries": {"sadness", false}, "mourns": {"sadness", false},
	"heartbroken": {"sadness", false},
	"rage": {"anger", false}, "furious": {"anger", false}, "angry": {"anger", false}, "anger": {"anger", false},
	"hatred": {"anger", false}, "enraged": {"anger", false},
	"fear": {"fear", false}, "afraid": {"fear", false}, "terrified": {"fear", false}, "panics": {"fear", false},
	"dread": {"fear", false},
}

func wordSet(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

// words 将文本切分为小写词
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func anyWord(tokens []string, set map[string]struct{}) (string, bool) {
	for _, t := range tokens {
		if _, ok := set[t]; ok {
			return t, true
		}
	}
	return "", false
}

func anyPrefix(tokens []string, prefixes []string) (string, bool) {
	for _, t := range tokens {
		for _, p := range prefixes {
			if strings.HasPrefix(t, p) {
				return t, true
			}
		}
	}
	return "", false
}

func containsAny(text string, subs []string) bool {
	for _, s := range subs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

// eventWords 事件名称、描述与标签的词
func eventWords(ev *entity.TimelineEvent) []string {
	return words(ev.Text())
}

// isAfterlifeContext 事件是否为闪回 / 梦境 / 灵体等不受死亡约束的情形
func isAfterlifeContext(ev *entity.TimelineEvent) bool {
	if ev.Type == entity.EventTypeFlashback {
		return true
	}
	_, ok := anyPrefix(eventWords(ev), afterlifePrefixes)
	return ok
}

func isResurrection(ev *entity.TimelineEvent) bool {
	_, ok := anyPrefix(eventWords(ev), resurrectionPrefixes)
	return ok
}

func isLearnEvent(ev *entity.TimelineEvent) bool {
	if ev.CharacterContext != nil && len(ev.CharacterContext.KnowledgeGained) > 0 {
		return true
	}
	if _, ok := anyWord(eventWords(ev), learnWords); ok {
		return true
	}
	return containsAny(ev.Text(), learnPhrases)
}

// concepts 事件文本中出现的概念词
func concepts(ev *entity.TimelineEvent) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range eventWords(ev) {
		if _, ok := conceptWords[t]; !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// dominantEmotion 事件的主要情绪：优先 CharacterContext.EmotionalState，其次文本中第一个情绪词
func dominantEmotion(ev *entity.TimelineEvent) (emotion, string, bool) {
	if ev.CharacterContext != nil && ev.CharacterContext.EmotionalState != "" {
		for _, t := range words(ev.CharacterContext.EmotionalState) {
			if em, ok := emotionWords[t]; ok {
				return em, t, true
			}
		}
	}
	for _, t := range eventWords(ev) {
		if em, ok := emotionWords[t]; ok {
			return em, t, true
		}
	}
	return emotion{}, "", false
}

func mentionsName(text, name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	return name != "" && strings.Contains(text, name)
}
