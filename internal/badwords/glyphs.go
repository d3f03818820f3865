package badwords

// glyphs lists the look-alikes accepted for each letter, besides the letter
// itself. ASCII overlaps between letters are limited to i/j/l, u/v and y/v.
var glyphs = map[rune]string{
	'a': "⒜@*#⍺₳4ａⓐＡᵃₐᴬåǟÃąẚᴀɐɑɒαΑΔΛаАคภᎪᗅᗩꓮ🅰🇦-",
	'b': "⒝฿8ｂⓑℬʙɓꞵƅβвьҍⴆცꮟᏸᏼᑲᖯᗷꓐ🇧",
	'c': "⒞¢₵ｃⅽⓒℂℭᶜᴄƈϲⲥсꮯᐸᑕᑢᑦꓚ匚🇨",
	'd': "⒟ɒｄⅾⅆⓓⅅđðᴅɖԁԃժꭰꮷᑯᗞᗪꓒꓓ𝐃🇩",
	'e': "⒠*#📧℮⋿£3ɐｅⅇℯⓔℰₑᴇꬲɛεеєҽⴹꭼꮛꓰ𝐄🇪-",
	'f': "⒡⸁₣ｆⓕℱᶠꜰꬵꞙƒʄẝϝғքᖴꓝ𝐅🇫",
	'g': "⒢₲ｇℊⓖɡɢᶃɠƍԍցꮆꮐᏻꓖ𝐆🇬",
	'h': "⒣#ｈℎⓗℍℌℋₕħʜɦⱨɧℜηⲏнԋһհክዘዪꮋꮒᕼんꓧ卄𝐇🇭",
	'i': "!¡⑴⒤ℹ*#׀⇂|∣⍳❕❗⥜1１❶①⓵¹₁ｉⅰⅈⓘℐℑⁱıɪᶦᴉɩjlｌⅼℓǀιⲓіꙇӏוןاﺎﺍߊⵏꭵᛁꓲ🇮-",
	'j': "⒥ℑｊⅉⓙⱼᴊʝɟʄϳјյꭻᒍᒚꓙ𝐉🇯",
	'k': "⒦₭ｋⓚₖᴋƙʞκⲕкӄҟҝꮶᛕꓗ𝐊🇰",
	'l': "⒧׀|∣1iｉⅰℐℑɩｌⅼℓⓛℒₗʟⱡɭɮꞁǀιⲓⳑіӏוןاﺎﺍߊⵏꮭꮮᒪᛁﾚㄥꓡꓲ🇱",
	'm': "⒨♍₥๓ｍⅿⓜⓂℳₘᴍɱꭑʍμϻⲙмጠꮇᗰᘻᛖﾶꓟ爪𝐌🇲",
	'n': "⒩♑₦ｎⓝℕⁿₙɴᴎɲɳŋηνⲛђипղոռሸꮑᑎᘉꓠ刀𝐍🇳",
	'o': "⒪*#°⊘⍥○⭕🅾¤၀๐໐߀〇০୦0०੦૦௦౦೦൦０⓪⓿⁰₀٥۵ｏℴⓞºₒᴏᴑꬽθοσⲟофჿօסⵔዐዕଠഠဝꓳ🇴-",
	'p': "⒫⍴ｐⓟℙₚᴘρϱ🅿ⲣрየꮲᑭꓑ𝐏🇵",
	'q': "⒬۹9ｑⓠℚϙϱԛфգզⵕᑫ𝐐🇶",
	'r': "⒭ｒⓡℝℛℜʀɾꭇꭈᴦⲅгհዪꭱꮁꮢꮧᖇꓣ乃几卂尺𝐑🇷",
	's': "⒮§$₴ｓⓢₛꜱʂƽςѕꙅտֆꭶꮥꮪᔆᔕꓢ丂𝐒🇸",
	't': "⒯⊤⟙✝ℑｔⓣₜᴛŧƫƭτⲧтፕꭲꮏｷꓔ千🇹",
	'u': "⒰*#∪⋃ｕⓤꞟᴜꭎꭒɥvʋυսሀሁᑌꓴ𝐔🇺-",
	'v': "⒱℣√∨⋁☑✅✔۷٧uｖⅴⓥⱽᴠνѵⴸꮙꮩᐯᐺꓦ𝐕🇻",
	'w': "⒲ɯｗⓦᴡʍѡԝաሠꮃꮤꓪ🇼",
	'x': "᙮⒳᙭×⌧╳⤫⤬⨯ｘⅹⓧₓꭓχⲭжхӽӿҳאⵝᕁᕽᚷﾒꓫ乂𝐗🇽",
	'y': "⒴५ɣvᶌｙⓨʏỿꭚγℽυϒⲩуүყሃꭹꮍꓬ𝐘*#🇾-",
	'z': "⒵ｚⓩℤℨᶻᴢƶȥʐʑⱬƹƨζչꮓᙆえꓜ乙𝐙🇿",
}
